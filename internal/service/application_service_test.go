package service

import (
	"context"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) Create(ctx context.Context, params repository.CreateApplicationParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *MockApplicationRepository) GetByID(ctx context.Context, applicationID string) (*entity.Application, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Application), args.Error(1)
}

func (m *MockApplicationRepository) HasPending(ctx context.Context, tenantID, listingID string) (bool, error) {
	args := m.Called(ctx, tenantID, listingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockApplicationRepository) UpdateStatus(ctx context.Context, params repository.UpdateApplicationStatusParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockApplicationRepository) List(ctx context.Context, params repository.ListApplicationsParams) (*repository.ListApplicationsResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ListApplicationsResult), args.Error(1)
}

func (m *MockApplicationRepository) CountByStatus(ctx context.Context, listingID string, status entity.ApplicationStatus) (int64, error) {
	args := m.Called(ctx, listingID, status)
	return args.Get(0).(int64), args.Error(1)
}

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Create(ctx context.Context, listing *entity.Listing) (string, error) {
	args := m.Called(ctx, listing)
	return args.String(0), args.Error(1)
}

func (m *MockListingRepository) GetByID(ctx context.Context, listingID string) (*entity.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Listing), args.Error(1)
}

func (m *MockListingRepository) UpdateInventory(ctx context.Context, params repository.UpdateInventoryParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockListingRepository) DecrementAvailableUnits(ctx context.Context, listingID string) (int, error) {
	args := m.Called(ctx, listingID)
	return args.Int(0), args.Error(1)
}

func (m *MockListingRepository) IncrementAvailableUnits(ctx context.Context, listingID string) (int, error) {
	args := m.Called(ctx, listingID)
	return args.Int(0), args.Error(1)
}

func (m *MockListingRepository) SetAvailabilityStatus(ctx context.Context, listingID string, status entity.AvailabilityStatus) error {
	args := m.Called(ctx, listingID, status)
	return args.Error(0)
}

func (m *MockListingRepository) SetArchived(ctx context.Context, listingID string, archived bool) error {
	args := m.Called(ctx, listingID, archived)
	return args.Error(0)
}

func (m *MockListingRepository) List(ctx context.Context, params repository.ListListingsParams) (*repository.ListListingsResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ListListingsResult), args.Error(1)
}

type MockListingCache struct {
	mock.Mock
}

func (m *MockListingCache) Get(ctx context.Context, listingID string) (*entity.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Listing), args.Error(1)
}

func (m *MockListingCache) Set(ctx context.Context, listing *entity.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockListingCache) Delete(ctx context.Context, listingID string) error {
	args := m.Called(ctx, listingID)
	return args.Error(0)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, message interface{}) error {
	args := m.Called(ctx, subject, message)
	return args.Error(0)
}

func (m *MockMessagePublisher) PublishRaw(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type NoOpLogger struct{}

func (l *NoOpLogger) Init()                                        {}
func (l *NoOpLogger) Debug(args ...interface{})                    {}
func (l *NoOpLogger) Debugf(template string, args ...interface{})  {}
func (l *NoOpLogger) Info(args ...interface{})                     {}
func (l *NoOpLogger) Infof(template string, args ...interface{})   {}
func (l *NoOpLogger) Warn(args ...interface{})                     {}
func (l *NoOpLogger) Warnf(template string, args ...interface{})   {}
func (l *NoOpLogger) Error(args ...interface{})                    {}
func (l *NoOpLogger) Errorf(template string, args ...interface{})  {}
func (l *NoOpLogger) DPanic(args ...interface{})                   {}
func (l *NoOpLogger) DPanicf(template string, args ...interface{}) {}
func (l *NoOpLogger) Fatal(args ...interface{})                    {}
func (l *NoOpLogger) Fatalf(template string, args ...interface{})  {}
func (l *NoOpLogger) With(args ...interface{}) logger.Logger       { return l }

func NewNoOpLogger() logger.Logger {
	return &NoOpLogger{}
}

func availableListing(id, landlordID string, total, available int) *entity.Listing {
	return &entity.Listing{
		ID:                 id,
		LandlordID:         landlordID,
		Title:              "Test Listing",
		Price:              1000,
		TotalUnits:         total,
		AvailableUnits:     available,
		AvailabilityStatus: entity.AvailabilityAvailable,
		Version:            1,
	}
}

func pendingApplication(id, listingID, tenantID, landlordID string) *entity.Application {
	return &entity.Application{
		ID:         id,
		ListingID:  listingID,
		TenantID:   tenantID,
		LandlordID: landlordID,
		Status:     entity.ApplicationPending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
		Version:    1,
	}
}

func newTestApplicationService(
	appRepo *MockApplicationRepository,
	listingRepo *MockListingRepository,
	cache *MockListingCache,
	publisher *MockMessagePublisher,
) ApplicationService {
	return NewApplicationService(appRepo, listingRepo, cache, publisher, nil, "", NewNoOpLogger())
}

func TestApplicationService_Submit_Success(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	publisher := new(MockMessagePublisher)
	svc := newTestApplicationService(appRepo, listingRepo, cache, publisher)

	listing := availableListing("listing1", "landlord1", 2, 2)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(listing, nil).Once()
	appRepo.On("HasPending", mock.Anything, "tenant1", "listing1").Return(false, nil).Once()
	appRepo.On("Create", mock.Anything, mock.MatchedBy(func(p repository.CreateApplicationParams) bool {
		return p.ListingID == "listing1" && p.TenantID == "tenant1" && p.LandlordID == "landlord1"
	})).Return("app1", nil).Once()
	publisher.On("Publish", mock.Anything, "application.submitted", mock.Anything).Return(nil).Once()

	application, err := svc.Submit(context.Background(), "tenant1", "listing1", "hello")

	require.NoError(t, err)
	assert.Equal(t, "app1", application.ID)
	assert.Equal(t, entity.ApplicationPending, application.Status)
	assert.Equal(t, "landlord1", application.LandlordID)
	appRepo.AssertExpectations(t)
	listingRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestApplicationService_Submit_ListingNotFound(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	listingRepo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound).Once()

	_, err := svc.Submit(context.Background(), "tenant1", "missing", "")
	assert.ErrorIs(t, err, ErrListingNotFound)
	appRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestApplicationService_Submit_ArchivedListingReadsAsNotFound(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	listing := availableListing("listing1", "landlord1", 2, 2)
	listing.Archived = true
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(listing, nil).Once()

	_, err := svc.Submit(context.Background(), "tenant1", "listing1", "")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestApplicationService_Submit_FullyOccupied(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	listing := availableListing("listing1", "landlord1", 2, 0)
	listing.AvailabilityStatus = entity.AvailabilityFullyOccupied
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(listing, nil).Once()

	_, err := svc.Submit(context.Background(), "tenant1", "listing1", "")
	assert.ErrorIs(t, err, ErrListingOccupied)
	appRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestApplicationService_Submit_DuplicateInsertRefused(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	// The pending lookup misses but the insert hits the unique guard, as
	// happens when two submissions from the same tenant race.
	listing := availableListing("listing1", "landlord1", 2, 2)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(listing, nil).Once()
	appRepo.On("HasPending", mock.Anything, "tenant1", "listing1").Return(false, nil).Once()
	appRepo.On("Create", mock.Anything, mock.Anything).Return("", repository.ErrAlreadyExists).Once()

	_, err := svc.Submit(context.Background(), "tenant1", "listing1", "")
	assert.ErrorIs(t, err, ErrDuplicateApplication)
	appRepo.AssertExpectations(t)
}

func TestApplicationService_Submit_DuplicatePending(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	listing := availableListing("listing1", "landlord1", 2, 2)
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(listing, nil).Once()
	appRepo.On("HasPending", mock.Anything, "tenant1", "listing1").Return(true, nil).Once()

	_, err := svc.Submit(context.Background(), "tenant1", "listing1", "")
	assert.ErrorIs(t, err, ErrDuplicateApplication)
	appRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestApplicationService_Approve_Success(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	publisher := new(MockMessagePublisher)
	svc := newTestApplicationService(appRepo, listingRepo, cache, publisher)

	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()
	listingRepo.On("DecrementAvailableUnits", mock.Anything, "listing1").Return(1, nil).Once()
	appRepo.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(p repository.UpdateApplicationStatusParams) bool {
		return p.ApplicationID == "app1" &&
			p.FromStatus == entity.ApplicationPending &&
			p.Status == entity.ApplicationApproved &&
			p.Version == 1
	})).Return(nil).Once()
	cache.On("Delete", mock.Anything, "listing1").Return(nil).Once()
	publisher.On("Publish", mock.Anything, "application.approved", mock.Anything).Return(nil).Once()
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(availableListing("listing1", "landlord1", 2, 1), nil).Once()

	approved, listing, err := svc.Approve(context.Background(), "app1", "landlord1", RoleLandlord)

	require.NoError(t, err)
	assert.Equal(t, entity.ApplicationApproved, approved.Status)
	require.NotNil(t, approved.ActedAt)
	require.NotNil(t, listing)
	assert.Equal(t, 1, listing.AvailableUnits)
	listingRepo.AssertNotCalled(t, "SetAvailabilityStatus", mock.Anything, mock.Anything, mock.Anything)
	appRepo.AssertExpectations(t)
	listingRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestApplicationService_Approve_LastUnitMarksFullyOccupied(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	publisher := new(MockMessagePublisher)
	svc := newTestApplicationService(appRepo, listingRepo, cache, publisher)

	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()
	listingRepo.On("DecrementAvailableUnits", mock.Anything, "listing1").Return(0, nil).Once()
	appRepo.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil).Once()
	listingRepo.On("SetAvailabilityStatus", mock.Anything, "listing1", entity.AvailabilityFullyOccupied).Return(nil).Once()
	publisher.On("Publish", mock.Anything, "listing.fully_occupied", mock.MatchedBy(func(e listingEvent) bool {
		return e.ListingID == "listing1" &&
			e.TotalUnits == 1 &&
			e.AvailableUnits == 0 &&
			e.AvailabilityStatus == string(entity.AvailabilityFullyOccupied)
	})).Return(nil).Once()
	cache.On("Delete", mock.Anything, "listing1").Return(nil).Once()
	publisher.On("Publish", mock.Anything, "application.approved", mock.Anything).Return(nil).Once()

	occupied := availableListing("listing1", "landlord1", 1, 0)
	occupied.AvailabilityStatus = entity.AvailabilityFullyOccupied
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(occupied, nil).Twice()

	approved, listing, err := svc.Approve(context.Background(), "app1", "landlord1", RoleLandlord)

	require.NoError(t, err)
	assert.Equal(t, entity.ApplicationApproved, approved.Status)
	require.NotNil(t, listing)
	assert.Equal(t, entity.AvailabilityFullyOccupied, listing.AvailabilityStatus)
	listingRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestApplicationService_Approve_NoUnitsAvailable(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()
	listingRepo.On("DecrementAvailableUnits", mock.Anything, "listing1").Return(0, repository.ErrNoUnitsAvailable).Once()

	_, _, err := svc.Approve(context.Background(), "app1", "landlord1", RoleLandlord)

	assert.ErrorIs(t, err, ErrNoUnitsAvailable)
	// The application must stay PENDING when no unit could be taken.
	appRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestApplicationService_Approve_Forbidden(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()

	_, _, err := svc.Approve(context.Background(), "app1", "someone-else", RoleLandlord)

	assert.ErrorIs(t, err, ErrForbidden)
	listingRepo.AssertNotCalled(t, "DecrementAvailableUnits", mock.Anything, mock.Anything)
}

func TestApplicationService_Approve_AdminMayAct(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	cache := new(MockListingCache)
	publisher := new(MockMessagePublisher)
	svc := newTestApplicationService(appRepo, listingRepo, cache, publisher)

	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()
	listingRepo.On("DecrementAvailableUnits", mock.Anything, "listing1").Return(1, nil).Once()
	appRepo.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil).Once()
	cache.On("Delete", mock.Anything, "listing1").Return(nil).Once()
	publisher.On("Publish", mock.Anything, "application.approved", mock.Anything).Return(nil).Once()
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(availableListing("listing1", "landlord1", 2, 1), nil).Once()

	_, _, err := svc.Approve(context.Background(), "app1", "admin1", RoleAdministrator)
	assert.NoError(t, err)
}

func TestApplicationService_Approve_AlreadyApprovedIsIdempotent(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	actedAt := time.Now().UTC()
	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	application.Status = entity.ApplicationApproved
	application.ActedAt = &actedAt
	application.Version = 2

	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(availableListing("listing1", "landlord1", 2, 1), nil).Once()

	approved, listing, err := svc.Approve(context.Background(), "app1", "landlord1", RoleLandlord)

	require.NoError(t, err)
	assert.Equal(t, entity.ApplicationApproved, approved.Status)
	assert.Equal(t, actedAt, *approved.ActedAt)
	assert.NotNil(t, listing)
	// A retry must not take a second unit.
	listingRepo.AssertNotCalled(t, "DecrementAvailableUnits", mock.Anything, mock.Anything)
	appRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestApplicationService_Approve_RejectedIsFinal(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	application.Status = entity.ApplicationRejected
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()

	_, _, err := svc.Approve(context.Background(), "app1", "landlord1", RoleLandlord)

	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	listingRepo.AssertNotCalled(t, "DecrementAvailableUnits", mock.Anything, mock.Anything)
}

func TestApplicationService_Approve_StatusWriteFailureReturnsUnit(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()
	listingRepo.On("DecrementAvailableUnits", mock.Anything, "listing1").Return(0, nil).Once()
	appRepo.On("UpdateStatus", mock.Anything, mock.Anything).Return(repository.ErrQueryFailed).Once()
	listingRepo.On("IncrementAvailableUnits", mock.Anything, "listing1").Return(1, nil).Once()

	_, _, err := svc.Approve(context.Background(), "app1", "landlord1", RoleLandlord)

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	listingRepo.AssertExpectations(t)
}

func TestApplicationService_Approve_ConcurrentWinnerStateReturned(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()
	listingRepo.On("DecrementAvailableUnits", mock.Anything, "listing1").Return(0, nil).Once()
	appRepo.On("UpdateStatus", mock.Anything, mock.Anything).Return(repository.ErrStatusConflict).Once()
	listingRepo.On("IncrementAvailableUnits", mock.Anything, "listing1").Return(1, nil).Once()

	actedAt := time.Now().UTC()
	winner := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	winner.Status = entity.ApplicationApproved
	winner.ActedAt = &actedAt
	winner.Version = 2
	appRepo.On("GetByID", mock.Anything, "app1").Return(winner, nil).Once()
	listingRepo.On("GetByID", mock.Anything, "listing1").Return(availableListing("listing1", "landlord1", 2, 0), nil).Once()

	approved, _, err := svc.Approve(context.Background(), "app1", "landlord1", RoleLandlord)

	require.NoError(t, err)
	assert.Equal(t, entity.ApplicationApproved, approved.Status)
	listingRepo.AssertExpectations(t)
}

func TestApplicationService_Reject_Success(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	publisher := new(MockMessagePublisher)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), publisher)

	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()
	appRepo.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(p repository.UpdateApplicationStatusParams) bool {
		return p.Status == entity.ApplicationRejected && p.FromStatus == entity.ApplicationPending
	})).Return(nil).Once()
	publisher.On("Publish", mock.Anything, "application.rejected", mock.Anything).Return(nil).Once()

	rejected, err := svc.Reject(context.Background(), "app1", "landlord1", RoleLandlord)

	require.NoError(t, err)
	assert.Equal(t, entity.ApplicationRejected, rejected.Status)
	require.NotNil(t, rejected.ActedAt)
	// Rejection never touches the unit pool.
	listingRepo.AssertNotCalled(t, "DecrementAvailableUnits", mock.Anything, mock.Anything)
	listingRepo.AssertNotCalled(t, "IncrementAvailableUnits", mock.Anything, mock.Anything)
	appRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestApplicationService_Reject_ApprovedIsFinal(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	svc := newTestApplicationService(appRepo, new(MockListingRepository), new(MockListingCache), new(MockMessagePublisher))

	actedAt := time.Now().UTC()
	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	application.Status = entity.ApplicationApproved
	application.ActedAt = &actedAt
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()

	_, err := svc.Reject(context.Background(), "app1", "landlord1", RoleLandlord)
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestApplicationService_Reject_AlreadyRejectedIsIdempotent(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	svc := newTestApplicationService(appRepo, new(MockListingRepository), new(MockListingCache), new(MockMessagePublisher))

	actedAt := time.Now().UTC()
	application := pendingApplication("app1", "listing1", "tenant1", "landlord1")
	application.Status = entity.ApplicationRejected
	application.ActedAt = &actedAt
	appRepo.On("GetByID", mock.Anything, "app1").Return(application, nil).Once()

	rejected, err := svc.Reject(context.Background(), "app1", "landlord1", RoleLandlord)

	require.NoError(t, err)
	assert.Equal(t, entity.ApplicationRejected, rejected.Status)
	appRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestApplicationService_ListForListing_ForbiddenForStranger(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	listingRepo := new(MockListingRepository)
	svc := newTestApplicationService(appRepo, listingRepo, new(MockListingCache), new(MockMessagePublisher))

	listingRepo.On("GetByID", mock.Anything, "listing1").Return(availableListing("listing1", "landlord1", 2, 2), nil).Once()

	_, _, err := svc.ListForListing(context.Background(), "listing1", "someone-else", RoleLandlord, 1, 10)

	assert.ErrorIs(t, err, ErrForbidden)
	appRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestApplicationService_ListForTenant(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	svc := newTestApplicationService(appRepo, new(MockListingRepository), new(MockListingCache), new(MockMessagePublisher))

	stored := []entity.Application{*pendingApplication("app1", "listing1", "tenant1", "landlord1")}
	appRepo.On("List", mock.Anything, repository.ListApplicationsParams{
		TenantID: "tenant1",
		Page:     1,
		PageSize: 10,
	}).Return(&repository.ListApplicationsResult{Applications: stored, TotalCount: 1}, nil).Once()

	applications, total, err := svc.ListForTenant(context.Background(), "tenant1", 1, 10)

	require.NoError(t, err)
	assert.Len(t, applications, 1)
	assert.Equal(t, int64(1), total)
}
