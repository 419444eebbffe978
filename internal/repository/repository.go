package repository

import (
	"context"
	"time"

	"alcyxob/program-generator/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
	// ErrQuotaCeiling is returned when a conditional credit increment matched
	// no document because the counter already reached its ceiling.
	ErrQuotaCeiling = RepositoryError("credit ceiling reached")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn so that every repository write made with the context it
// receives commits or rolls back together.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository holds the generation credit fields of a user.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// EnsureUser creates a free-tier record with a zero counter if none exists.
	EnsureUser(ctx context.Context, id string, now time.Time) error
	// ResetCreditsBefore zeroes the counter and sets resetAt=now, but only when
	// the stored resetAt is before monthStart. Reports whether a reset happened.
	ResetCreditsBefore(ctx context.Context, id string, monthStart, now time.Time) (bool, error)
	// IncrementGenerations adds one to the counter if it is below ceiling, in a
	// single conditional update. ceiling <= 0 means unbounded. Returns the new
	// count, or ErrQuotaCeiling.
	IncrementGenerations(ctx context.Context, id string, ceiling int) (int, error)
}

// ProgramRepository stores program roots.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error)
}

// WorkoutPlanRepository stores phases. (programId, phase) is unique.
type WorkoutPlanRepository interface {
	Create(ctx context.Context, plan *domain.WorkoutPlan) (primitive.ObjectID, error)
	// GetByProgramID returns the plans of a program ordered by phase.
	GetByProgramID(ctx context.Context, programID primitive.ObjectID) ([]domain.WorkoutPlan, error)
}

// WorkoutRepository stores the training days of a phase.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.Workout, error)
}

// WorkoutExerciseRepository stores exercise instances.
type WorkoutExerciseRepository interface {
	CreateMany(ctx context.Context, exercises []domain.WorkoutExercise) error
	GetByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) ([]domain.WorkoutExercise, error)
}

// ExerciseLibraryRepository is the name-deduplicated exercise catalog.
type ExerciseLibraryRepository interface {
	// FindOrCreate returns the entry whose normalized name matches, creating it
	// with the given category when absent. Safe under concurrent callers.
	FindOrCreate(ctx context.Context, name, category string) (*domain.ExerciseLibraryEntry, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseLibraryEntry, error)
}

// GenerationLogRepository stores usage records.
type GenerationLogRepository interface {
	Create(ctx context.Context, log *domain.GenerationLog) (primitive.ObjectID, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]domain.GenerationLog, error)
}

// CheckInRepository reads check-ins written by the progress subsystem.
type CheckInRepository interface {
	// ListByUser returns check-ins newest first.
	ListByUser(ctx context.Context, userID string, limit int64) ([]domain.CheckIn, error)
}

// WorkoutLogRepository reads completed-workout counts written by the progress subsystem.
type WorkoutLogRepository interface {
	CountCompletedByUser(ctx context.Context, userID string) (int64, error)
}
