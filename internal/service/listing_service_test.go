package service

import (
	"context"
	"testing"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func strp(s string) *string { return &s }

func newTestListingService(
	listingRepo *MockListingRepository,
	cache *MockListingCache,
	publisher *MockMessagePublisher,
) ListingService {
	return NewListingService(listingRepo, cache, publisher, NewNoOpLogger())
}

func TestListingService_Create_Success(t *testing.T) {
	listingRepo := new(MockListingRepository)
	svc := newTestListingService(listingRepo, new(MockListingCache), new(MockMessagePublisher))

	listingRepo.On("Create", mock.Anything, mock.MatchedBy(func(l *entity.Listing) bool {
		return l.LandlordID == "landlord1" && l.TotalUnits == 3 && l.AvailableUnits == 3
	})).Return("listing1", nil).Once()

	listing, err := svc.Create(context.Background(), CreateListingParams{
		LandlordID: "landlord1",
		Title:      "Sunny duplex",
		Price:      1500,
		TotalUnits: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, "listing1", listing.ID)
	assert.Equal(t, entity.AvailabilityAvailable, listing.AvailabilityStatus)
	listingRepo.AssertExpectations(t)
}

func TestListingService_Create_InvalidInput(t *testing.T) {
	listingRepo := new(MockListingRepository)
	svc := newTestListingService(listingRepo, new(MockListingCache), new(MockMessagePublisher))

	_, err := svc.Create(context.Background(), CreateListingParams{LandlordID: "landlord1", Price: 100})

	assert.ErrorIs(t, err, ErrInvalidInput)
	listingRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListingService_Get_CacheHitSkipsRepository(t *testing.T) {
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	svc := newTestListingService(listingRepo, cache, new(MockMessagePublisher))

	cached := availableListing("listing1", "landlord1", 2, 2)
	cache.On("Get", mock.Anything, "listing1").Return(cached, nil).Once()

	listing, err := svc.Get(context.Background(), "listing1")

	require.NoError(t, err)
	assert.Equal(t, "listing1", listing.ID)
	listingRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestListingService_Get_CacheMissFillsCache(t *testing.T) {
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	svc := newTestListingService(listingRepo, cache, new(MockMessagePublisher))

	stored := availableListing("listing1", "landlord1", 2, 2)
	cache.On("Get", mock.Anything, "listing1").Return(nil, nil).Once()
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(stored, nil).Once()
	cache.On("Set", mock.Anything, stored).Return(nil).Once()

	listing, err := svc.Get(context.Background(), "listing1")

	require.NoError(t, err)
	assert.Equal(t, "listing1", listing.ID)
	cache.AssertExpectations(t)
}

func TestListingService_Get_NotFound(t *testing.T) {
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	svc := newTestListingService(listingRepo, cache, new(MockMessagePublisher))

	cache.On("Get", mock.Anything, "missing").Return(nil, nil).Once()
	listingRepo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound).Once()

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestListingService_SetInventory_RaisingTotalAddsUnits(t *testing.T) {
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	publisher := new(MockMessagePublisher)
	svc := newTestListingService(listingRepo, cache, publisher)

	stored := availableListing("listing1", "landlord1", 2, 1)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(stored, nil).Once()
	listingRepo.On("UpdateInventory", mock.Anything, repository.UpdateInventoryParams{
		ListingID:          "listing1",
		TotalUnits:         5,
		AvailableUnits:     4,
		AvailabilityStatus: entity.AvailabilityAvailable,
		Version:            1,
	}).Return(nil).Once()
	cache.On("Delete", mock.Anything, "listing1").Return(nil).Once()
	publisher.On("Publish", mock.Anything, "listing.updated", mock.Anything).Return(nil).Once()

	listing, err := svc.SetInventory(context.Background(), SetInventoryParams{
		ListingID:  "listing1",
		ActorID:    "landlord1",
		ActorRole:  RoleLandlord,
		TotalUnits: intp(5),
	})

	require.NoError(t, err)
	assert.Equal(t, 5, listing.TotalUnits)
	assert.Equal(t, 4, listing.AvailableUnits)
	assert.Equal(t, 2, listing.Version)
	listingRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestListingService_SetInventory_ZeroAvailablePublishesFullyOccupied(t *testing.T) {
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	publisher := new(MockMessagePublisher)
	svc := newTestListingService(listingRepo, cache, publisher)

	stored := availableListing("listing1", "landlord1", 2, 2)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(stored, nil).Once()
	listingRepo.On("UpdateInventory", mock.Anything, mock.MatchedBy(func(p repository.UpdateInventoryParams) bool {
		return p.AvailableUnits == 0 && p.AvailabilityStatus == entity.AvailabilityFullyOccupied
	})).Return(nil).Once()
	cache.On("Delete", mock.Anything, "listing1").Return(nil).Once()
	publisher.On("Publish", mock.Anything, "listing.updated", mock.Anything).Return(nil).Once()
	publisher.On("Publish", mock.Anything, "listing.fully_occupied", mock.Anything).Return(nil).Once()

	listing, err := svc.SetInventory(context.Background(), SetInventoryParams{
		ListingID:      "listing1",
		ActorID:        "landlord1",
		ActorRole:      RoleLandlord,
		AvailableUnits: intp(0),
	})

	require.NoError(t, err)
	assert.Equal(t, entity.AvailabilityFullyOccupied, listing.AvailabilityStatus)
	publisher.AssertExpectations(t)
}

func TestListingService_SetInventory_NotYetReadyOverride(t *testing.T) {
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	publisher := new(MockMessagePublisher)
	svc := newTestListingService(listingRepo, cache, publisher)

	stored := availableListing("listing1", "landlord1", 2, 2)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(stored, nil).Once()
	listingRepo.On("UpdateInventory", mock.Anything, mock.MatchedBy(func(p repository.UpdateInventoryParams) bool {
		return p.AvailabilityStatus == entity.AvailabilityNotYetReady
	})).Return(nil).Once()
	cache.On("Delete", mock.Anything, "listing1").Return(nil).Once()
	publisher.On("Publish", mock.Anything, "listing.updated", mock.Anything).Return(nil).Once()

	listing, err := svc.SetInventory(context.Background(), SetInventoryParams{
		ListingID:          "listing1",
		ActorID:            "landlord1",
		ActorRole:          RoleLandlord,
		AvailabilityStatus: strp("NOT_YET_READY"),
	})

	require.NoError(t, err)
	assert.Equal(t, entity.AvailabilityNotYetReady, listing.AvailabilityStatus)
}

func TestListingService_SetInventory_UnknownStatusRejected(t *testing.T) {
	listingRepo := new(MockListingRepository)
	svc := newTestListingService(listingRepo, new(MockListingCache), new(MockMessagePublisher))

	stored := availableListing("listing1", "landlord1", 2, 2)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(stored, nil).Once()

	_, err := svc.SetInventory(context.Background(), SetInventoryParams{
		ListingID:          "listing1",
		ActorID:            "landlord1",
		ActorRole:          RoleLandlord,
		AvailabilityStatus: strp("SOLD_OUT"),
	})

	assert.ErrorIs(t, err, ErrInvalidInput)
	listingRepo.AssertNotCalled(t, "UpdateInventory", mock.Anything, mock.Anything)
}

func TestListingService_SetInventory_ForbiddenForStranger(t *testing.T) {
	listingRepo := new(MockListingRepository)
	svc := newTestListingService(listingRepo, new(MockListingCache), new(MockMessagePublisher))

	stored := availableListing("listing1", "landlord1", 2, 2)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(stored, nil).Once()

	_, err := svc.SetInventory(context.Background(), SetInventoryParams{
		ListingID:  "listing1",
		ActorID:    "someone-else",
		ActorRole:  RoleLandlord,
		TotalUnits: intp(5),
	})

	assert.ErrorIs(t, err, ErrForbidden)
	listingRepo.AssertNotCalled(t, "UpdateInventory", mock.Anything, mock.Anything)
}

func TestListingService_SetInventory_VersionConflict(t *testing.T) {
	listingRepo := new(MockListingRepository)
	svc := newTestListingService(listingRepo, new(MockListingCache), new(MockMessagePublisher))

	stored := availableListing("listing1", "landlord1", 2, 2)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(stored, nil).Once()
	listingRepo.On("UpdateInventory", mock.Anything, mock.Anything).Return(repository.ErrOptimisticLock).Once()

	_, err := svc.SetInventory(context.Background(), SetInventoryParams{
		ListingID:  "listing1",
		ActorID:    "landlord1",
		ActorRole:  RoleLandlord,
		TotalUnits: intp(5),
	})

	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestListingService_Archive_Success(t *testing.T) {
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	svc := newTestListingService(listingRepo, cache, new(MockMessagePublisher))

	stored := availableListing("listing1", "landlord1", 2, 2)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(stored, nil).Once()
	listingRepo.On("SetArchived", mock.Anything, "listing1", true).Return(nil).Once()
	cache.On("Delete", mock.Anything, "listing1").Return(nil).Once()

	err := svc.Archive(context.Background(), "listing1", "landlord1", RoleLandlord)

	require.NoError(t, err)
	listingRepo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestListingService_Archive_Forbidden(t *testing.T) {
	listingRepo := new(MockListingRepository)
	svc := newTestListingService(listingRepo, new(MockListingCache), new(MockMessagePublisher))

	stored := availableListing("listing1", "landlord1", 2, 2)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(stored, nil).Once()

	err := svc.Archive(context.Background(), "listing1", "tenant1", RoleTenant)

	assert.ErrorIs(t, err, ErrForbidden)
	listingRepo.AssertNotCalled(t, "SetArchived", mock.Anything, mock.Anything, mock.Anything)
}
