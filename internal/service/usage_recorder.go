package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/llm"
	"alcyxob/program-generator/internal/repository"
	"alcyxob/program-generator/internal/storage"
)

// UsageRecord describes one phase generation that reached the model.
type UsageRecord struct {
	RequestID   string
	UserID      string
	ProgramID   *primitive.ObjectID
	PhaseNumber int
	Model       string
	TokensUsed  int
	Attempts    int
	Duration    time.Duration
	Err         error
	// InputRisk is the highest sanitizer risk seen in the profile.
	InputRisk  RiskLevel
	Transcript []llm.Message
}

// UsageRecorder writes usage logs and transcripts outside the request path.
type UsageRecorder interface {
	// Record schedules the writes and returns immediately. Failures are logged only.
	Record(rec UsageRecord)
	// Wait blocks until every scheduled write has finished.
	Wait()
	// List returns a user's most recent records, with download links for archived transcripts.
	List(ctx context.Context, userID string, limit int64) ([]domain.GenerationLog, error)
}

type usageRecorder struct {
	logRepo repository.GenerationLogRepository
	store   storage.ObjectStorage // nil disables transcript archiving
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

const usageWriteTimeout = 10 * time.Second

// NewUsageRecorder creates the recorder. store may be nil.
func NewUsageRecorder(logRepo repository.GenerationLogRepository, store storage.ObjectStorage, logger *slog.Logger) UsageRecorder {
	return &usageRecorder{
		logRepo: logRepo,
		store:   store,
		logger:  logger,
		timeout: usageWriteTimeout,
	}
}

func (r *usageRecorder) Record(rec UsageRecord) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("Usage recorder panicked", "requestId", rec.RequestID, "panic", p)
			}
		}()

		// Detached from the request: the caller may already have its response.
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.write(ctx, rec)
	}()
}

func (r *usageRecorder) write(ctx context.Context, rec UsageRecord) {
	entry := &domain.GenerationLog{
		RequestID:   rec.RequestID,
		UserID:      rec.UserID,
		ProgramID:   rec.ProgramID,
		PhaseNumber: rec.PhaseNumber,
		Model:       rec.Model,
		TokensUsed:  rec.TokensUsed,
		Attempts:    rec.Attempts,
		DurationMs:  rec.Duration.Milliseconds(),
		Outcome:     domain.OutcomeSuccess,
		InputRisk:   string(rec.InputRisk),
	}
	if rec.Err != nil {
		entry.Outcome = domain.OutcomeFailed
		entry.Error = rec.Err.Error()
	}

	if r.store != nil && len(rec.Transcript) > 0 {
		key, err := r.archive(ctx, rec)
		if err != nil {
			r.logger.Warn("Failed to archive generation transcript", "requestId", rec.RequestID, "error", err)
		} else {
			entry.TranscriptKey = key
		}
	}

	if _, err := r.logRepo.Create(ctx, entry); err != nil {
		r.logger.Warn("Failed to write generation log", "requestId", rec.RequestID, "error", err)
		// Nothing references the transcript without its log entry.
		if entry.TranscriptKey != "" {
			if err := r.store.DeleteObject(ctx, entry.TranscriptKey); err != nil {
				r.logger.Warn("Failed to remove orphaned transcript", "key", entry.TranscriptKey, "error", err)
			}
		}
	}
}

// archive uploads the transcript as transcripts/{userId}/{uuid}.json.
func (r *usageRecorder) archive(ctx context.Context, rec UsageRecord) (string, error) {
	body, err := json.Marshal(rec.Transcript)
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	key := fmt.Sprintf("transcripts/%s/%s.json", rec.UserID, uuid.NewString())
	if err := r.store.PutObject(ctx, key, "application/json", body); err != nil {
		return "", err
	}
	return key, nil
}

func (r *usageRecorder) Wait() {
	r.wg.Wait()
}

func (r *usageRecorder) List(ctx context.Context, userID string, limit int64) ([]domain.GenerationLog, error) {
	logs, err := r.logRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if r.store == nil {
		return logs, nil
	}
	for i := range logs {
		if logs[i].TranscriptKey == "" {
			continue
		}
		url, err := r.store.GeneratePresignedDownloadURL(ctx, logs[i].TranscriptKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			r.logger.Warn("Failed to presign transcript URL", "key", logs[i].TranscriptKey, "error", err)
			continue
		}
		logs[i].TranscriptURL = url
	}
	return logs, nil
}
