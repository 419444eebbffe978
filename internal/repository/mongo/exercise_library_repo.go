package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/repository"
)

const exerciseLibraryCollectionName = "exercise_library"

type mongoExerciseLibraryRepository struct {
	collection *mongo.Collection
}

// NewMongoExerciseLibraryRepository creates a new exercise library repository.
func NewMongoExerciseLibraryRepository(db *mongo.Database) repository.ExerciseLibraryRepository {
	return &mongoExerciseLibraryRepository{
		collection: db.Collection(exerciseLibraryCollectionName),
	}
}

// FindOrCreate upserts on the normalized name key. The first writer's
// spelling and category win; later callers get the existing row.
func (r *mongoExerciseLibraryRepository) FindOrCreate(ctx context.Context, name, category string) (*domain.ExerciseLibraryEntry, error) {
	key := domain.LibraryKey(name)
	if key == "" {
		return nil, errors.New("exercise name is required")
	}
	if category == "" {
		category = domain.DefaultLibraryCategory
	}

	filter := bson.M{"nameKey": key}
	update := bson.M{"$setOnInsert": bson.M{
		"name":      strings.TrimSpace(name),
		"category":  category,
		"createdAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var entry domain.ExerciseLibraryEntry
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&entry)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent upsert inserted the same key first
		err = r.collection.FindOne(ctx, filter).Decode(&entry)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetByID retrieves a library entry.
func (r *mongoExerciseLibraryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseLibraryEntry, error) {
	var entry domain.ExerciseLibraryEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// EnsureExerciseLibraryIndexes creates necessary indexes. Call during startup.
func EnsureExerciseLibraryIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "nameKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
