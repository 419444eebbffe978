package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/repository"
)

const userCollectionName = "users"

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// GetByID retrieves a user by id.
func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// EnsureUser upserts a free-tier record; existing users are left untouched.
func (r *mongoUserRepository) EnsureUser(ctx context.Context, id string, now time.Time) error {
	update := bson.M{
		"$setOnInsert": bson.M{
			"tier":                 domain.TierFree,
			"generationsThisMonth": 0,
			"resetAt":              now,
			"createdAt":            now,
			"updatedAt":            now,
		},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// lost an upsert race; the document exists
		return nil
	}
	return err
}

// ResetCreditsBefore performs the monthly reset as one conditional update, so
// concurrent callers reset at most once.
func (r *mongoUserRepository) ResetCreditsBefore(ctx context.Context, id string, monthStart, now time.Time) (bool, error) {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"resetAt": bson.M{"$lt": monthStart}},
			bson.M{"resetAt": bson.M{"$exists": false}},
		},
	}
	update := bson.M{"$set": bson.M{
		"generationsThisMonth": 0,
		"resetAt":              now,
		"updatedAt":            now,
	}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// IncrementGenerations is an atomic increment-with-ceiling: the filter only
// matches while the counter is below the ceiling.
func (r *mongoUserRepository) IncrementGenerations(ctx context.Context, id string, ceiling int) (int, error) {
	filter := bson.M{"_id": id}
	if ceiling > 0 {
		filter["generationsThisMonth"] = bson.M{"$lt": ceiling}
	}
	update := bson.M{
		"$inc": bson.M{"generationsThisMonth": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user domain.User
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return 0, getErr
			}
			return 0, repository.ErrQuotaCeiling
		}
		return 0, err
	}
	return user.GenerationsThisMonth, nil
}

// EnsureUserIndexes creates necessary indexes. Call during startup.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
