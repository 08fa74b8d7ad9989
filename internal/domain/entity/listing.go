package entity

import (
	"errors"
	"fmt"
	"time"
)

type AvailabilityStatus string

const (
	AvailabilityAvailable     AvailabilityStatus = "AVAILABLE"
	AvailabilityFullyOccupied AvailabilityStatus = "FULLY_OCCUPIED"
	AvailabilityNotYetReady   AvailabilityStatus = "NOT_YET_READY"
)

func ParseAvailabilityStatus(raw string) (AvailabilityStatus, error) {
	switch AvailabilityStatus(raw) {
	case AvailabilityAvailable, AvailabilityFullyOccupied, AvailabilityNotYetReady:
		return AvailabilityStatus(raw), nil
	default:
		return "", fmt.Errorf("unknown availability status %q", raw)
	}
}

type Listing struct {
	ID                 string             `bson:"_id,omitempty"`
	LandlordID         string             `bson:"landlord_id"`
	Title              string             `bson:"title"`
	Description        string             `bson:"description,omitempty"`
	Price              float64            `bson:"price"`
	TotalUnits         int                `bson:"total_units"`
	AvailableUnits     int                `bson:"available_units"`
	AvailabilityStatus AvailabilityStatus `bson:"availability_status"`
	Archived           bool               `bson:"archived"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
	Version            int                `bson:"version"`
}

func NewListing(landlordID, title, description string, price float64, totalUnits int) (*Listing, error) {
	if landlordID == "" {
		return nil, errors.New("landlord ID cannot be empty")
	}
	if title == "" {
		return nil, errors.New("title cannot be empty")
	}
	if price < 0 {
		return nil, errors.New("price cannot be negative")
	}
	if totalUnits < 0 {
		return nil, errors.New("total units cannot be negative")
	}
	if totalUnits == 0 {
		totalUnits = 1
	}

	now := time.Now().UTC()
	listing := &Listing{
		LandlordID:     landlordID,
		Title:          title,
		Description:    description,
		Price:          price,
		TotalUnits:     totalUnits,
		AvailableUnits: totalUnits,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}
	listing.RecalculateAvailability(nil)
	return listing, nil
}

// InventoryEdit carries a landlord-initiated inventory change. Nil fields
// are left untouched.
type InventoryEdit struct {
	TotalUnits     *int
	AvailableUnits *int
	Status         *AvailabilityStatus
}

// ApplyInventoryEdit mutates the counters and re-derives the availability
// status. Raising the total adds the new units to the available pool;
// lowering it, or supplying an explicit available count, clamps the pool
// into [0, TotalUnits].
func (l *Listing) ApplyInventoryEdit(edit InventoryEdit) error {
	if edit.TotalUnits != nil {
		if *edit.TotalUnits < 0 {
			return errors.New("total units cannot be negative")
		}
		if *edit.TotalUnits > l.TotalUnits {
			l.AvailableUnits += *edit.TotalUnits - l.TotalUnits
		}
		l.TotalUnits = *edit.TotalUnits
	}
	if edit.AvailableUnits != nil {
		l.AvailableUnits = *edit.AvailableUnits
	}
	if l.AvailableUnits < 0 {
		l.AvailableUnits = 0
	}
	if l.AvailableUnits > l.TotalUnits {
		l.AvailableUnits = l.TotalUnits
	}

	l.RecalculateAvailability(edit.Status)
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// RecalculateAvailability derives the public-facing status from the
// counters. An explicit NOT_YET_READY override wins over everything;
// otherwise an empty pool always reads FULLY_OCCUPIED.
func (l *Listing) RecalculateAvailability(override *AvailabilityStatus) {
	if override != nil && *override == AvailabilityNotYetReady {
		l.AvailabilityStatus = AvailabilityNotYetReady
		return
	}
	if l.AvailableUnits <= 0 {
		l.AvailabilityStatus = AvailabilityFullyOccupied
		return
	}
	if override != nil {
		l.AvailabilityStatus = *override
		return
	}
	l.AvailabilityStatus = AvailabilityAvailable
}

// AcceptsApplications reports whether tenants may submit new applications.
// This is a courtesy check only; the authoritative check is the atomic
// decrement at approval time.
func (l *Listing) AcceptsApplications() bool {
	return !l.Archived && l.AvailableUnits > 0
}
