package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Measure types as stored on exercise instances.
const (
	MeasureReps     = "REPS"
	MeasureTime     = "TIME"
	MeasureDistance = "DISTANCE"
)

// Measure units as stored on exercise instances.
const (
	UnitSeconds    = "SECONDS"
	UnitMeters     = "METERS"
	UnitKilometers = "KILOMETERS"
	UnitMiles      = "MILES"
)

const DefaultLibraryCategory = "default"

// ExerciseLibraryEntry is the canonical catalog row an exercise name resolves to.
// NameKey is the normalized lookup key and carries the unique index.
type ExerciseLibraryEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameKey   string             `bson:"nameKey" json:"-"`
	Category  string             `bson:"category" json:"category"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// LibraryKey normalizes an exercise name for library lookups: trimmed,
// internal whitespace collapsed, lower-cased.
func LibraryKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// WorkoutExercise is one prescribed exercise inside a Workout.
type WorkoutExercise struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkoutID         primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	WorkoutPlanID     primitive.ObjectID `bson:"workoutPlanId" json:"workoutPlanId"`
	ExerciseLibraryID primitive.ObjectID `bson:"exerciseLibraryId" json:"exerciseLibraryId"`
	Name              string             `bson:"name" json:"name"`
	Sets              int                `bson:"sets" json:"sets"`
	Reps              int                `bson:"reps" json:"reps"`
	MeasureType       string             `bson:"measureType" json:"measureType"`
	MeasureValue      float64            `bson:"measureValue" json:"measureValue"`
	MeasureUnit       *string            `bson:"measureUnit" json:"measureUnit"`
	RestPeriod        int                `bson:"restPeriod" json:"restPeriod"` // seconds
	SortOrder         int                `bson:"sortOrder" json:"sortOrder"`
	Notes             *string            `bson:"notes" json:"notes"`
	Instructions      []string           `bson:"instructions,omitempty" json:"instructions,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}
