package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	listingCollectionName = "listings"
)

type listingRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewListingRepository(db *mongo.Client, cfg config.MongoDBConfig) repository.ListingRepository {
	database := db.Database(cfg.Database)
	collection := database.Collection(listingCollectionName)
	return &listingRepository{
		db:         database,
		collection: collection,
	}
}

func (r *listingRepository) Create(ctx context.Context, listing *entity.Listing) (string, error) {
	if listing.ID == "" {
		listing.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, listing)
	if err != nil {
		return "", fmt.Errorf("failed to create listing: %w", err)
	}
	return listing.ID, nil
}

func (r *listingRepository) GetByID(ctx context.Context, listingID string) (*entity.Listing, error) {
	var listing entity.Listing
	err := r.collection.FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing by ID %s: %w", listingID, err)
	}
	return &listing, nil
}

// UpdateInventory writes all three inventory fields in one conditional
// update so concurrent landlord edits cannot interleave a lost update.
func (r *listingRepository) UpdateInventory(ctx context.Context, params repository.UpdateInventoryParams) error {
	filter := bson.M{
		"_id":     params.ListingID,
		"version": params.Version,
	}
	update := bson.M{
		"$set": bson.M{
			"total_units":         params.TotalUnits,
			"available_units":     params.AvailableUnits,
			"availability_status": params.AvailabilityStatus,
			"updated_at":          time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update inventory for listing %s: %w", params.ListingID, err)
	}

	if result.MatchedCount == 0 {
		var existing entity.Listing
		errFind := r.collection.FindOne(ctx, bson.M{"_id": params.ListingID}).Decode(&existing)
		if errors.Is(errFind, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		if errFind == nil && existing.Version != params.Version {
			return repository.ErrOptimisticLock
		}
		return repository.ErrUpdateFailed
	}
	return nil
}

// DecrementAvailableUnits is the atomic compare-and-decrement backing the
// approval workflow. The precondition and the decrement are a single
// FindOneAndUpdate; two concurrent calls for the last unit cannot both
// match. The version bump makes any in-flight version-guarded inventory
// edit fail instead of committing a stale counter snapshot.
func (r *listingRepository) DecrementAvailableUnits(ctx context.Context, listingID string) (int, error) {
	filter := bson.M{
		"_id":             listingID,
		"available_units": bson.M{"$gt": 0},
	}
	update := bson.M{
		"$inc": bson.M{"available_units": -1, "version": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var listing entity.Listing
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			errFind := r.collection.FindOne(ctx, bson.M{"_id": listingID}).Err()
			if errors.Is(errFind, mongo.ErrNoDocuments) {
				return 0, repository.ErrNotFound
			}
			if errFind != nil {
				return 0, fmt.Errorf("failed to check listing %s after decrement miss: %w", listingID, errFind)
			}
			return 0, repository.ErrNoUnitsAvailable
		}
		return 0, fmt.Errorf("failed to decrement available units for listing %s: %w", listingID, err)
	}
	return listing.AvailableUnits, nil
}

// IncrementAvailableUnits undoes one consumed unit, never past TotalUnits.
// Bumps the version for the same reason the decrement does.
func (r *listingRepository) IncrementAvailableUnits(ctx context.Context, listingID string) (int, error) {
	filter := bson.M{
		"_id":   listingID,
		"$expr": bson.M{"$lt": bson.A{"$available_units", "$total_units"}},
	}
	update := bson.M{
		"$inc": bson.M{"available_units": 1, "version": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var listing entity.Listing
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			errFind := r.collection.FindOne(ctx, bson.M{"_id": listingID}).Err()
			if errors.Is(errFind, mongo.ErrNoDocuments) {
				return 0, repository.ErrNotFound
			}
			if errFind != nil {
				return 0, fmt.Errorf("failed to check listing %s after increment miss: %w", listingID, errFind)
			}
			return 0, repository.ErrUpdateFailed
		}
		return 0, fmt.Errorf("failed to increment available units for listing %s: %w", listingID, err)
	}
	return listing.AvailableUnits, nil
}

func (r *listingRepository) SetAvailabilityStatus(ctx context.Context, listingID string, status entity.AvailabilityStatus) error {
	update := bson.M{
		"$set": bson.M{
			"availability_status": status,
			"updated_at":          time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": listingID}, update)
	if err != nil {
		return fmt.Errorf("failed to set availability status for listing %s: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *listingRepository) SetArchived(ctx context.Context, listingID string, archived bool) error {
	update := bson.M{
		"$set": bson.M{
			"archived":   archived,
			"updated_at": time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": listingID}, update)
	if err != nil {
		return fmt.Errorf("failed to set archived flag for listing %s: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *listingRepository) List(ctx context.Context, params repository.ListListingsParams) (*repository.ListListingsResult, error) {
	filter := bson.M{}
	if params.LandlordID != "" {
		filter["landlord_id"] = params.LandlordID
	}
	if !params.IncludeArchived {
		filter["archived"] = false
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
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []entity.Listing
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listed listings: %w", err)
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	return &repository.ListListingsResult{
		Listings:   listings,
		TotalCount: totalCount,
	}, nil
}
