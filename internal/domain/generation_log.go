package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Generation outcomes recorded in the usage log.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// GenerationLog records one model-backed phase generation for usage metering.
// The raw transcript lives in object storage under TranscriptKey.
type GenerationLog struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	RequestID     string              `bson:"requestId" json:"requestId"`
	UserID        string              `bson:"userId" json:"userId"`
	ProgramID     *primitive.ObjectID `bson:"programId,omitempty" json:"programId,omitempty"`
	PhaseNumber   int                 `bson:"phaseNumber" json:"phaseNumber"`
	Model         string              `bson:"model" json:"model"`
	TokensUsed    int                 `bson:"tokensUsed" json:"tokensUsed"`
	Attempts      int                 `bson:"attempts" json:"attempts"`
	DurationMs    int64               `bson:"durationMs" json:"durationMs"`
	Outcome       string              `bson:"outcome" json:"outcome"`
	Error         string              `bson:"error,omitempty" json:"error,omitempty"`
	InputRisk     string              `bson:"inputRisk,omitempty" json:"inputRisk,omitempty"`
	TranscriptKey string              `bson:"transcriptKey,omitempty" json:"-"`
	TranscriptURL string              `bson:"-" json:"transcriptUrl,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
}
