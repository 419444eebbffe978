package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckIn is a periodic self-report written by the progress subsystem.
// This service only reads it.
type CheckIn struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"userId" json:"userId"`
	Date         time.Time          `bson:"date" json:"date"`
	Weight       *float64           `bson:"weight,omitempty" json:"weight,omitempty"`
	SleepHours   *float64           `bson:"sleepHours,omitempty" json:"sleepHours,omitempty"`
	SleepQuality *float64           `bson:"sleepQuality,omitempty" json:"sleepQuality,omitempty"`
	Energy       *float64           `bson:"energyLevel,omitempty" json:"energyLevel,omitempty"`
	Stress       *float64           `bson:"stressLevel,omitempty" json:"stressLevel,omitempty"`
	Soreness     *float64           `bson:"soreness,omitempty" json:"soreness,omitempty"`
	Recovery     *float64           `bson:"recovery,omitempty" json:"recovery,omitempty"`
	Waist        *float64           `bson:"waist,omitempty" json:"waist,omitempty"`
	Chest        *float64           `bson:"chest,omitempty" json:"chest,omitempty"`
	Hips         *float64           `bson:"hips,omitempty" json:"hips,omitempty"`
	BicepLeft    *float64           `bson:"bicepLeft,omitempty" json:"bicepLeft,omitempty"`
	BicepRight   *float64           `bson:"bicepRight,omitempty" json:"bicepRight,omitempty"`
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Weight trend classifications.
const (
	TrendLosing      = "losing"
	TrendGaining     = "gaining"
	TrendMaintaining = "maintaining"
	TrendUnknown     = "unknown"
)

// Adherence classifications.
const (
	AdherenceRegular  = "regular"
	AdherenceSporadic = "sporadic"
	AdherenceNone     = "none"
)

// FeedbackContext summarizes check-in history for a regeneration prompt.
type FeedbackContext struct {
	HasHistory      bool            `json:"hasHistory"`
	Summary         FeedbackSummary `json:"summary"`
	Recommendations []string        `json:"recommendations"`
}

type FeedbackSummary struct {
	TotalCheckIns     int                `json:"totalCheckIns"`
	WorkoutsCompleted int64              `json:"workoutsCompleted"`
	WeightTrend       string             `json:"weightTrend"`
	WeightChange      float64            `json:"weightChange"`
	StartWeight       *float64           `json:"startWeight,omitempty"`
	CurrentWeight     *float64           `json:"currentWeight,omitempty"`
	Wellness          WellnessAverages   `json:"wellness"`
	MeasurementDeltas map[string]float64 `json:"measurementDeltas,omitempty"`
	Adherence         string             `json:"adherence"`
	RecentNotes       []string           `json:"recentNotes,omitempty"`
}

// WellnessAverages are nil when no check-in reported the metric.
type WellnessAverages struct {
	SleepHours   *float64 `json:"sleepHours,omitempty"`
	SleepQuality *float64 `json:"sleepQuality,omitempty"`
	Energy       *float64 `json:"energy,omitempty"`
	Stress       *float64 `json:"stress,omitempty"`
	Soreness     *float64 `json:"soreness,omitempty"`
	Recovery     *float64 `json:"recovery,omitempty"`
}
