package repository

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
)

// ListingCache is a read-path cache for listings. Counters served from the
// cache are last-committed values; every write path must invalidate.
type ListingCache interface {
	Get(ctx context.Context, listingID string) (*entity.Listing, error)
	Set(ctx context.Context, listing *entity.Listing) error
	Delete(ctx context.Context, listingID string) error
}
