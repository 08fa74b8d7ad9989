package service

import (
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/repository"
)

var (
	ErrListingNotFound      = errors.New("listing not found")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrForbidden            = errors.New("action forbidden")
	ErrDuplicateApplication = errors.New("tenant already has a pending application for this listing")
	ErrListingOccupied      = errors.New("listing is fully occupied")
	ErrNoUnitsAvailable     = errors.New("no available units remaining")
	ErrAlreadyFinalized     = errors.New("application is already finalized")
	ErrConcurrentUpdate     = errors.New("resource was modified concurrently, retry the request")
	ErrInvalidInput         = errors.New("invalid input")
	ErrStorageUnavailable   = errors.New("storage temporarily unavailable")
)

// storageErr classifies an unexpected repository failure as retryable.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

func mapListingLookupErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrListingNotFound
	}
	return storageErr(err)
}

func mapApplicationLookupErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrApplicationNotFound
	}
	return storageErr(err)
}
