package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/repository"
)

const generationLogCollectionName = "generation_logs"

type mongoGenerationLogRepository struct {
	collection *mongo.Collection
}

// NewMongoGenerationLogRepository creates a new usage log repository.
func NewMongoGenerationLogRepository(db *mongo.Database) repository.GenerationLogRepository {
	return &mongoGenerationLogRepository{
		collection: db.Collection(generationLogCollectionName),
	}
}

// Create inserts a usage record.
func (r *mongoGenerationLogRepository) Create(ctx context.Context, log *domain.GenerationLog) (primitive.ObjectID, error) {
	if log.UserID == "" {
		return primitive.NilObjectID, errors.New("generation log requires a user")
	}
	log.ID = primitive.NewObjectID()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// ListByUser returns a user's most recent records first.
func (r *mongoGenerationLogRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]domain.GenerationLog, error) {
	logs := []domain.GenerationLog{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// EnsureGenerationLogIndexes creates necessary indexes. Call during startup.
func EnsureGenerationLogIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
