package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/adapter/nats"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type CreateListingParams struct {
	LandlordID  string
	Title       string
	Description string
	Price       float64
	TotalUnits  int
}

type SetInventoryParams struct {
	ListingID          string
	ActorID            string
	ActorRole          string
	TotalUnits         *int
	AvailableUnits     *int
	AvailabilityStatus *string
}

type ListingService interface {
	Create(ctx context.Context, params CreateListingParams) (*entity.Listing, error)
	Get(ctx context.Context, listingID string) (*entity.Listing, error)
	ListForLandlord(ctx context.Context, landlordID string, page, pageSize int) ([]entity.Listing, int64, error)
	SetInventory(ctx context.Context, params SetInventoryParams) (*entity.Listing, error)
	Archive(ctx context.Context, listingID, actorID, actorRole string) error
}

type listingService struct {
	listingRepo  repository.ListingRepository
	listingCache repository.ListingCache
	msgPublisher nats.MessagePublisher
	log          logger.Logger
	tracer       trace.Tracer
}

func NewListingService(
	listingRepo repository.ListingRepository,
	listingCache repository.ListingCache,
	msgPublisher nats.MessagePublisher,
	log logger.Logger,
) ListingService {
	return &listingService{
		listingRepo:  listingRepo,
		listingCache: listingCache,
		msgPublisher: msgPublisher,
		log:          log,
		tracer:       otel.Tracer("rental-service"),
	}
}

func (s *listingService) Create(ctx context.Context, params CreateListingParams) (*entity.Listing, error) {
	ctx, span := s.tracer.Start(ctx, "ListingService.Create")
	defer span.End()

	s.log.Infof("Landlord %s creating listing %q", params.LandlordID, params.Title)

	listing, err := entity.NewListing(params.LandlordID, params.Title, params.Description, params.Price, params.TotalUnits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	listingID, err := s.listingRepo.Create(ctx, listing)
	if err != nil {
		s.log.Errorf("Failed to save listing for landlord %s: %v", params.LandlordID, err)
		return nil, storageErr(err)
	}
	listing.ID = listingID

	s.log.Infof("Listing %s created for landlord %s with %d unit(s)", listingID, params.LandlordID, listing.TotalUnits)
	return listing, nil
}

func (s *listingService) Get(ctx context.Context, listingID string) (*entity.Listing, error) {
	if s.listingCache != nil {
		cached, err := s.listingCache.Get(ctx, listingID)
		if err != nil {
			s.log.Warnf("Cache lookup for listing %s failed: %v", listingID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, mapListingLookupErr(err)
	}

	if s.listingCache != nil {
		if err := s.listingCache.Set(ctx, listing); err != nil {
			s.log.Warnf("Failed to cache listing %s: %v", listingID, err)
		}
	}
	return listing, nil
}

func (s *listingService) ListForLandlord(ctx context.Context, landlordID string, page, pageSize int) ([]entity.Listing, int64, error) {
	result, err := s.listingRepo.List(ctx, repository.ListListingsParams{
		LandlordID: landlordID,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		s.log.Errorf("Failed to list listings for landlord %s: %v", landlordID, err)
		return nil, 0, storageErr(err)
	}
	return result.Listings, result.TotalCount, nil
}

// SetInventory applies a landlord inventory edit: counters are clamped by
// the entity, the status is re-derived, and the whole edit is persisted as
// one version-guarded write so concurrent edits cannot lose updates.
func (s *listingService) SetInventory(ctx context.Context, params SetInventoryParams) (*entity.Listing, error) {
	ctx, span := s.tracer.Start(ctx, "ListingService.SetInventory")
	defer span.End()

	s.log.Infof("Actor %s editing inventory of listing %s", params.ActorID, params.ListingID)

	listing, err := s.listingRepo.GetByID(ctx, params.ListingID)
	if err != nil {
		return nil, mapListingLookupErr(err)
	}
	if !isOwnerOrAdmin(params.ActorID, params.ActorRole, listing.LandlordID) {
		s.log.Warnf("Actor %s is not allowed to edit listing %s owned by landlord %s", params.ActorID, params.ListingID, listing.LandlordID)
		return nil, ErrForbidden
	}

	edit := entity.InventoryEdit{
		TotalUnits:     params.TotalUnits,
		AvailableUnits: params.AvailableUnits,
	}
	if params.AvailabilityStatus != nil {
		status, perr := entity.ParseAvailabilityStatus(*params.AvailabilityStatus)
		if perr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, perr)
		}
		edit.Status = &status
	}

	currentVersion := listing.Version
	if err := listing.ApplyInventoryEdit(edit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	err = s.listingRepo.UpdateInventory(ctx, repository.UpdateInventoryParams{
		ListingID:          listing.ID,
		TotalUnits:         listing.TotalUnits,
		AvailableUnits:     listing.AvailableUnits,
		AvailabilityStatus: listing.AvailabilityStatus,
		Version:            currentVersion,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOptimisticLock):
			return nil, ErrConcurrentUpdate
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrListingNotFound
		default:
			s.log.Errorf("Failed to persist inventory edit for listing %s: %v", params.ListingID, err)
			return nil, storageErr(err)
		}
	}
	listing.Version = currentVersion + 1

	if s.listingCache != nil {
		if err := s.listingCache.Delete(ctx, listing.ID); err != nil {
			s.log.Warnf("Failed to invalidate cache for listing %s: %v", listing.ID, err)
		}
	}

	if err := s.msgPublisher.Publish(ctx, natsSubjectListingUpdated, newListingEvent(listing)); err != nil {
		s.log.Warnf("Failed to publish listing updated event for %s: %v", listing.ID, err)
	}
	if listing.AvailabilityStatus == entity.AvailabilityFullyOccupied {
		if err := s.msgPublisher.Publish(ctx, natsSubjectListingFullyOccupied, newListingEvent(listing)); err != nil {
			s.log.Warnf("Failed to publish fully occupied event for listing %s: %v", listing.ID, err)
		}
	}

	s.log.Infof("Inventory of listing %s updated: total=%d available=%d status=%s", listing.ID, listing.TotalUnits, listing.AvailableUnits, listing.AvailabilityStatus)
	return listing, nil
}

func (s *listingService) Archive(ctx context.Context, listingID, actorID, actorRole string) error {
	ctx, span := s.tracer.Start(ctx, "ListingService.Archive")
	defer span.End()

	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return mapListingLookupErr(err)
	}
	if !isOwnerOrAdmin(actorID, actorRole, listing.LandlordID) {
		return ErrForbidden
	}

	if err := s.listingRepo.SetArchived(ctx, listingID, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrListingNotFound
		}
		s.log.Errorf("Failed to archive listing %s: %v", listingID, err)
		return storageErr(err)
	}

	if s.listingCache != nil {
		if err := s.listingCache.Delete(ctx, listingID); err != nil {
			s.log.Warnf("Failed to invalidate cache for listing %s: %v", listingID, err)
		}
	}

	s.log.Infof("Listing %s archived by %s", listingID, actorID)
	return nil
}
