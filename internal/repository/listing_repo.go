package repository

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
)

type UpdateInventoryParams struct {
	ListingID          string
	TotalUnits         int
	AvailableUnits     int
	AvailabilityStatus entity.AvailabilityStatus
	Version            int
}

type ListListingsParams struct {
	LandlordID      string
	IncludeArchived bool
	Page            int
	PageSize        int
}

type ListListingsResult struct {
	Listings   []entity.Listing
	TotalCount int64
}

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) (string, error)
	GetByID(ctx context.Context, listingID string) (*entity.Listing, error)

	// UpdateInventory persists a landlord inventory edit as a single
	// conditional write guarded by the listing version. Returns
	// ErrOptimisticLock when a concurrent write got there first.
	UpdateInventory(ctx context.Context, params UpdateInventoryParams) error

	// DecrementAvailableUnits atomically consumes one unit, but only when
	// the pool is non-empty, and reports the resulting count. Returns
	// ErrNoUnitsAvailable when the precondition fails. This is the only
	// operation allowed to take units at approval time.
	DecrementAvailableUnits(ctx context.Context, listingID string) (int, error)

	// IncrementAvailableUnits returns one unit to the pool, capped at
	// TotalUnits. Used to compensate an approval whose status write failed.
	IncrementAvailableUnits(ctx context.Context, listingID string) (int, error)

	SetAvailabilityStatus(ctx context.Context, listingID string, status entity.AvailabilityStatus) error
	SetArchived(ctx context.Context, listingID string, archived bool) error
	List(ctx context.Context, params ListListingsParams) (*ListListingsResult, error)
}
