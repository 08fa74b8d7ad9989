package service

import (
	"time"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
	"github.com/google/uuid"
)

const (
	natsSubjectApplicationSubmitted = "application.submitted"
	natsSubjectApplicationApproved  = "application.approved"
	natsSubjectApplicationRejected  = "application.rejected"
	natsSubjectListingFullyOccupied = "listing.fully_occupied"
	natsSubjectListingUpdated       = "listing.updated"
	natsSubjectInventoryDrift       = "listing.inventory.drift"
)

type applicationEvent struct {
	EventID       string    `json:"event_id"`
	ApplicationID string    `json:"application_id"`
	ListingID     string    `json:"listing_id"`
	TenantID      string    `json:"tenant_id"`
	LandlordID    string    `json:"landlord_id"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newApplicationEvent(app *entity.Application) applicationEvent {
	return applicationEvent{
		EventID:       uuid.NewString(),
		ApplicationID: app.ID,
		ListingID:     app.ListingID,
		TenantID:      app.TenantID,
		LandlordID:    app.LandlordID,
		Status:        string(app.Status),
		OccurredAt:    time.Now().UTC(),
	}
}

type listingEvent struct {
	EventID            string    `json:"event_id"`
	ListingID          string    `json:"listing_id"`
	TotalUnits         int       `json:"total_units"`
	AvailableUnits     int       `json:"available_units"`
	AvailabilityStatus string    `json:"availability_status"`
	OccurredAt         time.Time `json:"occurred_at"`
}

func newListingEvent(listing *entity.Listing) listingEvent {
	return listingEvent{
		EventID:            uuid.NewString(),
		ListingID:          listing.ID,
		TotalUnits:         listing.TotalUnits,
		AvailableUnits:     listing.AvailableUnits,
		AvailabilityStatus: string(listing.AvailabilityStatus),
		OccurredAt:         time.Now().UTC(),
	}
}

type inventoryDriftEvent struct {
	EventID       string    `json:"event_id"`
	ListingID     string    `json:"listing_id"`
	ConsumedUnits int       `json:"consumed_units"`
	ApprovedCount int64     `json:"approved_count"`
	OccurredAt    time.Time `json:"occurred_at"`
}
