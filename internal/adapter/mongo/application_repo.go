package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	applicationCollectionName = "applications"
)

type applicationRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
	log        logger.Logger
}

func NewApplicationRepository(db *mongo.Client, cfg config.MongoDBConfig, log logger.Logger) repository.ApplicationRepository {
	database := db.Database(cfg.Database)
	collection := database.Collection(applicationCollectionName)

	// The partial unique index is what actually enforces "one pending
	// application per tenant per listing"; the service-level lookup is
	// only a fast path. Index creation is idempotent.
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "listing_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": entity.ApplicationPending}),
		},
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warnf("Failed to create indexes for %s collection (may already exist): %v", applicationCollectionName, err)
	}

	return &applicationRepository{
		db:         database,
		collection: collection,
		log:        log,
	}
}

func (r *applicationRepository) Create(ctx context.Context, params repository.CreateApplicationParams) (string, error) {
	now := time.Now().UTC()
	application := entity.Application{
		ID:         primitive.NewObjectID().Hex(),
		ListingID:  params.ListingID,
		TenantID:   params.TenantID,
		LandlordID: params.LandlordID,
		Message:    params.Message,
		Status:     entity.ApplicationPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}

	_, err := r.collection.InsertOne(ctx, application)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrAlreadyExists
		}
		return "", fmt.Errorf("failed to create application: %w", err)
	}
	return application.ID, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, applicationID string) (*entity.Application, error) {
	var application entity.Application
	err := r.collection.FindOne(ctx, bson.M{"_id": applicationID}).Decode(&application)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application by ID %s: %w", applicationID, err)
	}
	return &application, nil
}

func (r *applicationRepository) HasPending(ctx context.Context, tenantID, listingID string) (bool, error) {
	filter := bson.M{
		"tenant_id":  tenantID,
		"listing_id": listingID,
		"status":     entity.ApplicationPending,
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check pending application for tenant %s on listing %s: %w", tenantID, listingID, err)
	}
	return count > 0, nil
}

// UpdateStatus matches on the current status as well as the version, so a
// terminal application can never be rewritten even by a stale caller.
func (r *applicationRepository) UpdateStatus(ctx context.Context, params repository.UpdateApplicationStatusParams) error {
	filter := bson.M{
		"_id":     params.ApplicationID,
		"status":  params.FromStatus,
		"version": params.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"status":     params.Status,
			"acted_at":   params.ActedAt,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update status for application %s: %w", params.ApplicationID, err)
	}

	if result.MatchedCount == 0 {
		var existing entity.Application
		errFind := r.collection.FindOne(ctx, bson.M{"_id": params.ApplicationID}).Decode(&existing)
		if errors.Is(errFind, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		if errFind == nil && existing.Status != params.FromStatus {
			return repository.ErrStatusConflict
		}
		if errFind == nil && existing.Version != params.Version {
			return repository.ErrOptimisticLock
		}
		return repository.ErrUpdateFailed
	}
	return nil
}

func (r *applicationRepository) List(ctx context.Context, params repository.ListApplicationsParams) (*repository.ListApplicationsResult, error) {
	filter := bson.M{}
	if params.ListingID != "" {
		filter["listing_id"] = params.ListingID
	}
	if params.TenantID != "" {
		filter["tenant_id"] = params.TenantID
	}
	if params.Status != "" {
		filter["status"] = params.Status
	}

	findOptions := options.Find()
	if params.PageSize > 0 {
		if params.Page <= 0 {
			params.Page = 1
		}
		findOptions.SetSkip(int64((params.Page - 1) * params.PageSize))
		findOptions.SetLimit(int64(params.PageSize))
	}
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer cursor.Close(ctx)

	var applications []entity.Application
	if err = cursor.All(ctx, &applications); err != nil {
		return nil, fmt.Errorf("failed to decode listed applications: %w", err)
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}

	return &repository.ListApplicationsResult{
		Applications: applications,
		TotalCount:   totalCount,
	}, nil
}

func (r *applicationRepository) CountByStatus(ctx context.Context, listingID string, status entity.ApplicationStatus) (int64, error) {
	filter := bson.M{
		"listing_id": listingID,
		"status":     status,
	}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s applications for listing %s: %w", status, listingID, err)
	}
	return count, nil
}
