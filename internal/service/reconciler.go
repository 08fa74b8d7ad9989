package service

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/adapter/nats"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/repository"
	"github.com/google/uuid"
)

const reconcilerPageSize = 100

// Reconciler sweeps the inventory for the known partial-failure window of
// the approval flow: a unit decrement whose matching approval write never
// committed (or vice versa). Drift is reported, not silently repaired;
// only the derived availability label is healed in place.
type Reconciler struct {
	listingRepo  repository.ListingRepository
	appRepo      repository.ApplicationRepository
	msgPublisher nats.MessagePublisher
	log          logger.Logger
}

func NewReconciler(
	listingRepo repository.ListingRepository,
	appRepo repository.ApplicationRepository,
	msgPublisher nats.MessagePublisher,
	log logger.Logger,
) *Reconciler {
	return &Reconciler{
		listingRepo:  listingRepo,
		appRepo:      appRepo,
		msgPublisher: msgPublisher,
		log:          log,
	}
}

func (r *Reconciler) RunOnce(ctx context.Context) error {
	page := 1
	var checked, drifted int

	for {
		result, err := r.listingRepo.List(ctx, repository.ListListingsParams{
			IncludeArchived: true,
			Page:            page,
			PageSize:        reconcilerPageSize,
		})
		if err != nil {
			r.log.Errorf("Reconciler failed to list listings (page %d): %v", page, err)
			return err
		}

		for i := range result.Listings {
			listing := &result.Listings[i]
			if r.checkListing(ctx, listing) {
				drifted++
			}
			checked++
		}

		if len(result.Listings) < reconcilerPageSize {
			break
		}
		page++
	}

	r.log.Infof("Reconciliation sweep finished: %d listing(s) checked, %d with drift", checked, drifted)
	return nil
}

// checkListing reports whether the listing's counters disagree with its
// approved applications.
func (r *Reconciler) checkListing(ctx context.Context, listing *entity.Listing) bool {
	approved, err := r.appRepo.CountByStatus(ctx, listing.ID, entity.ApplicationApproved)
	if err != nil {
		r.log.Errorf("Reconciler failed to count approved applications for listing %s: %v", listing.ID, err)
		return false
	}

	consumed := listing.TotalUnits - listing.AvailableUnits
	drifted := int64(consumed) != approved
	if drifted {
		// Manual inventory edits also shift this balance, so this is an
		// operator signal, not an automatic repair.
		r.log.Warnf("Inventory drift on listing %s: %d unit(s) consumed but %d approved application(s)", listing.ID, consumed, approved)
		event := inventoryDriftEvent{
			EventID:       uuid.NewString(),
			ListingID:     listing.ID,
			ConsumedUnits: consumed,
			ApprovedCount: approved,
			OccurredAt:    time.Now().UTC(),
		}
		if perr := r.msgPublisher.Publish(ctx, natsSubjectInventoryDrift, event); perr != nil {
			r.log.Warnf("Failed to publish inventory drift event for listing %s: %v", listing.ID, perr)
		}
	}

	// Heal the tolerated label drift from the approval flow: the counter
	// is authoritative, the label is derived.
	if listing.AvailableUnits <= 0 && listing.AvailabilityStatus == entity.AvailabilityAvailable {
		if err := r.listingRepo.SetAvailabilityStatus(ctx, listing.ID, entity.AvailabilityFullyOccupied); err != nil {
			r.log.Warnf("Reconciler failed to heal availability label for listing %s: %v", listing.ID, err)
		} else {
			r.log.Infof("Healed availability label of listing %s to FULLY_OCCUPIED", listing.ID)
		}
	}

	return drifted
}
