package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// EnsureIndexes creates the indexes of every collection this service writes,
// concurrently. The first failure is returned after all builders finish.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	builders := map[string]func(context.Context, *mongo.Collection) error{
		userCollectionName:            EnsureUserIndexes,
		programCollectionName:         EnsureProgramIndexes,
		workoutPlanCollectionName:     EnsureWorkoutPlanIndexes,
		workoutCollectionName:         EnsureWorkoutIndexes,
		workoutExerciseCollectionName: EnsureWorkoutExerciseIndexes,
		exerciseLibraryCollectionName: EnsureExerciseLibraryIndexes,
		generationLogCollectionName:   EnsureGenerationLogIndexes,
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, build := range builders {
		g.Go(func() error {
			if err := build(gctx, db.Collection(name)); err != nil {
				return fmt.Errorf("indexes for %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
