package repository

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
)

type CreateApplicationParams struct {
	ListingID  string
	TenantID   string
	LandlordID string
	Message    string
}

type UpdateApplicationStatusParams struct {
	ApplicationID string
	FromStatus    entity.ApplicationStatus
	Status        entity.ApplicationStatus
	ActedAt       time.Time
	Version       int
}

type ListApplicationsParams struct {
	ListingID string
	TenantID  string
	Status    entity.ApplicationStatus
	Page      int
	PageSize  int
}

type ListApplicationsResult struct {
	Applications []entity.Application
	TotalCount   int64
}

type ApplicationRepository interface {
	// Create inserts a new PENDING application. Returns ErrAlreadyExists
	// when the tenant already has a pending application for the listing;
	// the store enforces this uniquely, so concurrent submissions cannot
	// both insert.
	Create(ctx context.Context, params CreateApplicationParams) (string, error)
	GetByID(ctx context.Context, applicationID string) (*entity.Application, error)

	// HasPending reports whether the tenant already has a live application
	// for the listing. Fast path only; Create is the authoritative guard.
	HasPending(ctx context.Context, tenantID, listingID string) (bool, error)

	// UpdateStatus performs the terminal transition as a conditional write
	// matched on the current status and version. Returns ErrStatusConflict
	// when the application is no longer in FromStatus, ErrOptimisticLock on
	// a version mismatch.
	UpdateStatus(ctx context.Context, params UpdateApplicationStatusParams) error

	List(ctx context.Context, params ListApplicationsParams) (*ListApplicationsResult, error)
	CountByStatus(ctx context.Context, listingID string, status entity.ApplicationStatus) (int64, error)
}
