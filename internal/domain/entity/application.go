package entity

import (
	"errors"
	"fmt"
	"time"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

type Application struct {
	ID         string            `bson:"_id,omitempty"`
	ListingID  string            `bson:"listing_id"`
	TenantID   string            `bson:"tenant_id"`
	LandlordID string            `bson:"landlord_id"`
	Message    string            `bson:"message,omitempty"`
	Status     ApplicationStatus `bson:"status"`
	CreatedAt  time.Time         `bson:"created_at"`
	UpdatedAt  time.Time         `bson:"updated_at"`
	ActedAt    *time.Time        `bson:"acted_at,omitempty"`
	Version    int               `bson:"version"`
}

// NewApplication snapshots the listing owner onto the application so the
// ownership check at approval time does not depend on the live listing.
func NewApplication(listingID, tenantID, landlordID, message string) (*Application, error) {
	if listingID == "" {
		return nil, errors.New("listing ID cannot be empty")
	}
	if tenantID == "" {
		return nil, errors.New("tenant ID cannot be empty")
	}
	if landlordID == "" {
		return nil, errors.New("landlord ID cannot be empty")
	}

	now := time.Now().UTC()
	return &Application{
		ListingID:  listingID,
		TenantID:   tenantID,
		LandlordID: landlordID,
		Message:    message,
		Status:     ApplicationPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}, nil
}

func (a *Application) IsTerminal() bool {
	return a.Status == ApplicationApproved || a.Status == ApplicationRejected
}

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:  {ApplicationApproved, ApplicationRejected},
	ApplicationApproved: {},
	ApplicationRejected: {},
}

// Transition is the only way an application changes status. Terminal
// states are absorbing; ActedAt is stamped exactly once.
func (a *Application) Transition(next ApplicationStatus) error {
	allowed, ok := applicationTransitions[a.Status]
	if !ok {
		return fmt.Errorf("cannot transition from unknown status %s", a.Status)
	}
	for _, s := range allowed {
		if s == next {
			now := time.Now().UTC()
			a.Status = next
			a.ActedAt = &now
			a.UpdatedAt = now
			a.Version++
			return nil
		}
	}
	return fmt.Errorf("invalid status transition from %s to %s", a.Status, next)
}
