package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workout is a single training day inside a WorkoutPlan.
type Workout struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkoutPlanID primitive.ObjectID `bson:"workoutPlanId" json:"workoutPlanId"`
	ProgramID     primitive.ObjectID `bson:"programId" json:"programId"`
	Name          string             `bson:"name" json:"name"`
	Focus         string             `bson:"focus" json:"focus"`
	DayNumber     int                `bson:"dayNumber" json:"dayNumber"`
	Warmup        Block              `bson:"warmup" json:"warmup"`
	Cooldown      Block              `bson:"cooldown" json:"cooldown"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Block is a warmup or cooldown segment.
type Block struct {
	Duration   int      `bson:"duration" json:"duration"` // minutes
	Activities []string `bson:"activities" json:"activities"`
}
