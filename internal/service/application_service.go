package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/adapter/email"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/adapter/nats"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type ApplicationService interface {
	Submit(ctx context.Context, tenantID, listingID, message string) (*entity.Application, error)
	Approve(ctx context.Context, applicationID, actorID, actorRole string) (*entity.Application, *entity.Listing, error)
	Reject(ctx context.Context, applicationID, actorID, actorRole string) (*entity.Application, error)
	ListForTenant(ctx context.Context, tenantID string, page, pageSize int) ([]entity.Application, int64, error)
	ListForListing(ctx context.Context, listingID, actorID, actorRole string, page, pageSize int) ([]entity.Application, int64, error)
}

type applicationService struct {
	appRepo      repository.ApplicationRepository
	listingRepo  repository.ListingRepository
	listingCache repository.ListingCache
	msgPublisher nats.MessagePublisher
	mailer       email.EmailSender
	opsEmail     string
	log          logger.Logger
	tracer       trace.Tracer
}

func NewApplicationService(
	appRepo repository.ApplicationRepository,
	listingRepo repository.ListingRepository,
	listingCache repository.ListingCache,
	msgPublisher nats.MessagePublisher,
	mailer email.EmailSender,
	opsEmail string,
	log logger.Logger,
) ApplicationService {
	return &applicationService{
		appRepo:      appRepo,
		listingRepo:  listingRepo,
		listingCache: listingCache,
		msgPublisher: msgPublisher,
		mailer:       mailer,
		opsEmail:     opsEmail,
		log:          log,
		tracer:       otel.Tracer("rental-service"),
	}
}

func (s *applicationService) Submit(ctx context.Context, tenantID, listingID, message string) (*entity.Application, error) {
	ctx, span := s.tracer.Start(ctx, "ApplicationService.Submit")
	defer span.End()

	s.log.Infof("Tenant %s submitting application for listing %s", tenantID, listingID)

	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		s.log.Errorf("Failed to load listing %s for submission: %v", listingID, err)
		return nil, mapListingLookupErr(err)
	}
	if listing.Archived {
		return nil, ErrListingNotFound
	}
	// Courtesy check only: inventory can change between submission and
	// approval, the atomic decrement at approval time is authoritative.
	if listing.AvailableUnits <= 0 {
		s.log.Infof("Listing %s is fully occupied, refusing application from tenant %s", listingID, tenantID)
		return nil, ErrListingOccupied
	}

	// Fast path; the insert below is the authoritative duplicate guard.
	hasPending, err := s.appRepo.HasPending(ctx, tenantID, listingID)
	if err != nil {
		s.log.Errorf("Failed to check pending applications for tenant %s on listing %s: %v", tenantID, listingID, err)
		return nil, storageErr(err)
	}
	if hasPending {
		return nil, ErrDuplicateApplication
	}

	application, err := entity.NewApplication(listingID, tenantID, listing.LandlordID, message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	applicationID, err := s.appRepo.Create(ctx, repository.CreateApplicationParams{
		ListingID:  application.ListingID,
		TenantID:   application.TenantID,
		LandlordID: application.LandlordID,
		Message:    application.Message,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrDuplicateApplication
		}
		s.log.Errorf("Failed to save application for tenant %s on listing %s: %v", tenantID, listingID, err)
		return nil, storageErr(err)
	}
	application.ID = applicationID

	if err := s.msgPublisher.Publish(ctx, natsSubjectApplicationSubmitted, newApplicationEvent(application)); err != nil {
		s.log.Warnf("Failed to publish application submitted event for %s: %v", applicationID, err)
	}

	s.log.Infof("Application %s created for tenant %s on listing %s", applicationID, tenantID, listingID)
	return application, nil
}

// Approve consumes exactly one unit of the referenced listing and moves
// the application to APPROVED. The unit is taken by an atomic conditional
// decrement, so concurrent approvals of the last unit cannot both succeed;
// whichever decrement lands first wins.
func (s *applicationService) Approve(ctx context.Context, applicationID, actorID, actorRole string) (*entity.Application, *entity.Listing, error) {
	ctx, span := s.tracer.Start(ctx, "ApplicationService.Approve")
	defer span.End()

	s.log.Infof("Actor %s approving application %s", actorID, applicationID)

	application, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		s.log.Errorf("Failed to load application %s for approval: %v", applicationID, err)
		return nil, nil, mapApplicationLookupErr(err)
	}
	if !isOwnerOrAdmin(actorID, actorRole, application.LandlordID) {
		s.log.Warnf("Actor %s is not allowed to act on application %s owned by landlord %s", actorID, applicationID, application.LandlordID)
		return nil, nil, ErrForbidden
	}

	switch application.Status {
	case entity.ApplicationApproved:
		// Retry of an already-approved application is a no-op: no second
		// decrement, the stored state is returned as-is.
		s.log.Infof("Application %s is already approved, returning stored state", applicationID)
		listing, lerr := s.listingRepo.GetByID(ctx, application.ListingID)
		if lerr != nil {
			s.log.Warnf("Failed to load listing %s for approved application response: %v", application.ListingID, lerr)
		}
		return application, listing, nil
	case entity.ApplicationRejected:
		return nil, nil, ErrAlreadyFinalized
	}

	newAvailable, err := s.listingRepo.DecrementAvailableUnits(ctx, application.ListingID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoUnitsAvailable):
			s.log.Infof("No units left on listing %s, approval of application %s refused", application.ListingID, applicationID)
			return nil, nil, ErrNoUnitsAvailable
		case errors.Is(err, repository.ErrNotFound):
			return nil, nil, ErrListingNotFound
		default:
			s.log.Errorf("Failed to decrement units for listing %s: %v", application.ListingID, err)
			return nil, nil, storageErr(err)
		}
	}

	currentVersion := application.Version
	if err := application.Transition(entity.ApplicationApproved); err != nil {
		// Unreachable after the PENDING check above, but the unit must be
		// returned if it ever fires.
		s.returnUnit(ctx, application.ListingID, applicationID)
		return nil, nil, fmt.Errorf("failed to transition application %s: %w", applicationID, err)
	}

	err = s.appRepo.UpdateStatus(ctx, repository.UpdateApplicationStatusParams{
		ApplicationID: application.ID,
		FromStatus:    entity.ApplicationPending,
		Status:        entity.ApplicationApproved,
		ActedAt:       *application.ActedAt,
		Version:       currentVersion,
	})
	if err != nil {
		// The unit is consumed but no approved application records it.
		// Compensate, then check whether a concurrent call won the race.
		s.returnUnit(ctx, application.ListingID, applicationID)

		if errors.Is(err, repository.ErrStatusConflict) || errors.Is(err, repository.ErrOptimisticLock) {
			current, ferr := s.appRepo.GetByID(ctx, application.ID)
			if ferr == nil && current.Status == entity.ApplicationApproved {
				s.log.Infof("Application %s was approved concurrently, returning stored state", applicationID)
				listing, _ := s.listingRepo.GetByID(ctx, current.ListingID)
				return current, listing, nil
			}
			if ferr == nil && current.Status == entity.ApplicationRejected {
				return nil, nil, ErrAlreadyFinalized
			}
			return nil, nil, ErrConcurrentUpdate
		}
		s.log.Errorf("Failed to persist approval of application %s: %v", applicationID, err)
		return nil, nil, storageErr(err)
	}

	if newAvailable <= 0 {
		// Label write is intentionally separate from the decrement: if it
		// fails the consumed unit stands and the reconciliation sweep heals
		// the label.
		if err := s.listingRepo.SetAvailabilityStatus(ctx, application.ListingID, entity.AvailabilityFullyOccupied); err != nil {
			s.log.Warnf("Failed to mark listing %s fully occupied: %v", application.ListingID, err)
		} else {
			s.notifyFullyOccupied(ctx, application.ListingID)
		}
	}

	s.invalidateListing(ctx, application.ListingID)

	if err := s.msgPublisher.Publish(ctx, natsSubjectApplicationApproved, newApplicationEvent(application)); err != nil {
		s.log.Warnf("Failed to publish application approved event for %s: %v", applicationID, err)
	}

	listing, err := s.listingRepo.GetByID(ctx, application.ListingID)
	if err != nil {
		s.log.Warnf("Failed to load listing %s for approval response: %v", application.ListingID, err)
		listing = nil
	}

	s.log.Infof("Application %s approved by %s, listing %s has %d unit(s) left", applicationID, actorID, application.ListingID, newAvailable)
	return application, listing, nil
}

func (s *applicationService) Reject(ctx context.Context, applicationID, actorID, actorRole string) (*entity.Application, error) {
	ctx, span := s.tracer.Start(ctx, "ApplicationService.Reject")
	defer span.End()

	s.log.Infof("Actor %s rejecting application %s", actorID, applicationID)

	application, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		s.log.Errorf("Failed to load application %s for rejection: %v", applicationID, err)
		return nil, mapApplicationLookupErr(err)
	}
	if !isOwnerOrAdmin(actorID, actorRole, application.LandlordID) {
		s.log.Warnf("Actor %s is not allowed to act on application %s owned by landlord %s", actorID, applicationID, application.LandlordID)
		return nil, ErrForbidden
	}

	switch application.Status {
	case entity.ApplicationRejected:
		s.log.Infof("Application %s is already rejected, returning stored state", applicationID)
		return application, nil
	case entity.ApplicationApproved:
		return nil, ErrAlreadyFinalized
	}

	currentVersion := application.Version
	if err := application.Transition(entity.ApplicationRejected); err != nil {
		return nil, fmt.Errorf("failed to transition application %s: %w", applicationID, err)
	}

	err = s.appRepo.UpdateStatus(ctx, repository.UpdateApplicationStatusParams{
		ApplicationID: application.ID,
		FromStatus:    entity.ApplicationPending,
		Status:        entity.ApplicationRejected,
		ActedAt:       *application.ActedAt,
		Version:       currentVersion,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) || errors.Is(err, repository.ErrOptimisticLock) {
			current, ferr := s.appRepo.GetByID(ctx, application.ID)
			if ferr == nil && current.Status == entity.ApplicationRejected {
				return current, nil
			}
			if ferr == nil && current.Status == entity.ApplicationApproved {
				return nil, ErrAlreadyFinalized
			}
			return nil, ErrConcurrentUpdate
		}
		s.log.Errorf("Failed to persist rejection of application %s: %v", applicationID, err)
		return nil, storageErr(err)
	}

	if err := s.msgPublisher.Publish(ctx, natsSubjectApplicationRejected, newApplicationEvent(application)); err != nil {
		s.log.Warnf("Failed to publish application rejected event for %s: %v", applicationID, err)
	}

	s.log.Infof("Application %s rejected by %s", applicationID, actorID)
	return application, nil
}

func (s *applicationService) ListForTenant(ctx context.Context, tenantID string, page, pageSize int) ([]entity.Application, int64, error) {
	result, err := s.appRepo.List(ctx, repository.ListApplicationsParams{
		TenantID: tenantID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		s.log.Errorf("Failed to list applications for tenant %s: %v", tenantID, err)
		return nil, 0, storageErr(err)
	}
	return result.Applications, result.TotalCount, nil
}

func (s *applicationService) ListForListing(ctx context.Context, listingID, actorID, actorRole string, page, pageSize int) ([]entity.Application, int64, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, 0, mapListingLookupErr(err)
	}
	if !isOwnerOrAdmin(actorID, actorRole, listing.LandlordID) {
		return nil, 0, ErrForbidden
	}

	result, err := s.appRepo.List(ctx, repository.ListApplicationsParams{
		ListingID: listingID,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		s.log.Errorf("Failed to list applications for listing %s: %v", listingID, err)
		return nil, 0, storageErr(err)
	}
	return result.Applications, result.TotalCount, nil
}

// returnUnit is the best-effort compensation for a decrement whose
// matching status write did not commit. A failure here leaves drift that
// the reconciliation sweep detects.
func (s *applicationService) returnUnit(ctx context.Context, listingID, applicationID string) {
	if _, err := s.listingRepo.IncrementAvailableUnits(ctx, listingID); err != nil {
		s.log.Errorf("Failed to return unit to listing %s after approval of %s did not commit: %v", listingID, applicationID, err)
	}
}

func (s *applicationService) invalidateListing(ctx context.Context, listingID string) {
	if s.listingCache == nil {
		return
	}
	if err := s.listingCache.Delete(ctx, listingID); err != nil {
		s.log.Warnf("Failed to invalidate cache for listing %s: %v", listingID, err)
	}
}

func (s *applicationService) notifyFullyOccupied(ctx context.Context, listingID string) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		s.log.Warnf("Failed to load listing %s for fully occupied notification: %v", listingID, err)
		return
	}
	if err := s.msgPublisher.Publish(ctx, natsSubjectListingFullyOccupied, newListingEvent(listing)); err != nil {
		s.log.Warnf("Failed to publish fully occupied event for listing %s: %v", listingID, err)
	}

	if s.mailer == nil || s.opsEmail == "" {
		return
	}
	subject := fmt.Sprintf("Listing %s is fully occupied", listingID)
	body := fmt.Sprintf("All units of listing %s have been rented out.", listingID)
	if err := s.mailer.Send(ctx, []string{s.opsEmail}, subject, "", body); err != nil {
		s.log.Warnf("Failed to send fully occupied notification for listing %s: %v", listingID, err)
	}
}
