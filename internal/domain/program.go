package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultProgramName        = "Custom Fitness Program"
	DefaultProgramDescription = "A personalized fitness program."
)

// Program is the root of a generated multi-phase plan. It is created once,
// when the first phase persists, and owns the WorkoutPlans of every phase.
type Program struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     string             `bson:"ownerId" json:"ownerId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	TotalPhases int                `bson:"totalPhases" json:"totalPhases"`
	// Profile is the sanitized profile used for phase 1. Later phases fall back
	// to it when the caller does not resend a profile.
	Profile   *UserProfile `bson:"profile,omitempty" json:"-"`
	CreatedAt time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// WorkoutPlan is one persisted phase of a Program.
type WorkoutPlan struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProgramID     primitive.ObjectID `bson:"programId" json:"programId"`
	OwnerID       string             `bson:"ownerId" json:"ownerId"`
	PhaseNumber   int                `bson:"phase" json:"phase"`
	Name          string             `bson:"name" json:"name"`
	Focus         string             `bson:"focus" json:"focus"`
	SplitType     string             `bson:"splitType" json:"splitType"`
	DurationWeeks int                `bson:"durationWeeks" json:"durationWeeks"`
	DaysPerWeek   int                `bson:"daysPerWeek" json:"daysPerWeek"`

	DailyCalories int `bson:"dailyCalories" json:"dailyCalories"`
	ProteinGrams  int `bson:"proteinGrams" json:"proteinGrams"`
	CarbGrams     int `bson:"carbGrams" json:"carbGrams"`
	FatGrams      int `bson:"fatGrams" json:"fatGrams"`

	PhaseExplanation    string   `bson:"phaseExplanation" json:"phaseExplanation"`
	PhaseExpectations   string   `bson:"phaseExpectations" json:"phaseExpectations"`
	PhaseKeyPoints      []string `bson:"phaseKeyPoints" json:"phaseKeyPoints"`
	ProgressionProtocol []string `bson:"progressionProtocol,omitempty" json:"progressionProtocol,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
