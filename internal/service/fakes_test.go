package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"alcyxob/program-generator/internal/config"
	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/llm"
)

// scriptedReply is one queued provider outcome.
type scriptedReply struct {
	content string
	err     error
	tokens  int
	delay   time.Duration
}

// scriptedProvider returns queued replies in order and records every request.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []scriptedReply
	requests []llm.Request
}

func newScriptedProvider(replies ...scriptedReply) *scriptedProvider {
	return &scriptedProvider{replies: replies}
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	if len(p.replies) == 0 {
		p.mu.Unlock()
		return nil, errors.New("scripted provider: no replies left")
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	p.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Response{
		Content:      r.content,
		Model:        req.Model,
		Usage:        llm.TokenUsage{TotalTokens: r.tokens},
		FinishReason: "stop",
	}, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *scriptedProvider) lastRequest() llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

// okReply queues a valid phase reply.
func okReply(focus string, exercises ...string) scriptedReply {
	return scriptedReply{content: phaseJSON(focus, exercises...), tokens: 1200}
}

// phaseJSON renders a minimal valid model reply with one workout. Each
// exercise is "name" or "name|category".
func phaseJSON(focus string, exercises ...string) string {
	if len(exercises) == 0 {
		exercises = []string{"Barbell Squat|primary", "Plank|isolation"}
	}
	type measure struct {
		Type  string  `json:"type"`
		Value float64 `json:"value"`
		Unit  string  `json:"unit,omitempty"`
	}
	type exercise struct {
		Name     string  `json:"name"`
		Category string  `json:"category"`
		Sets     int     `json:"sets"`
		Measure  measure `json:"measure"`
		Rest     int     `json:"restPeriod"`
	}
	var exs []exercise
	for _, e := range exercises {
		name, category := e, "primary"
		for i := len(e) - 1; i >= 0; i-- {
			if e[i] == '|' {
				name, category = e[:i], e[i+1:]
				break
			}
		}
		exs = append(exs, exercise{Name: name, Category: category, Sets: 3, Measure: measure{Type: "reps", Value: 10}, Rest: 90})
	}

	body := map[string]any{
		"name":          focus + " Phase",
		"durationWeeks": 4,
		"focus":         focus,
		"explanation":   "Build a base.",
		"expectations":  "Feel stronger.",
		"keyPoints":     []string{"Form first"},
		"splitType":     "Full Body",
		"workouts": []map[string]any{{
			"dayNumber": 1,
			"name":      "Day 1",
			"focus":     focus,
			"warmup":    map[string]any{"duration": 5, "activities": []string{"Jumping jacks"}},
			"cooldown":  map[string]any{"duration": 5, "activities": []string{"Stretch"}},
			"exercises": exs,
		}},
		"nutrition": map[string]any{
			"dailyCalories": 2400,
			"macros":        map[string]any{"protein": 160, "carbs": 250, "fats": 80},
		},
	}
	b, _ := json.Marshal(body)
	return string(b)
}

func validProfile() *domain.UserProfile {
	return &domain.UserProfile{
		Sex:             "female",
		TrainingGoal:    "build strength",
		Weight:          140,
		Age:             32,
		ExperienceLevel: "intermediate",
		DaysAvailable:   3,
		TimePerSession:  60,
		Environment:     domain.Environment{Primary: "gym"},
		Equipment:       domain.Equipment{Type: "full-gym"},
	}
}

func testGenerationConfig() config.GenerationConfig {
	return config.GenerationConfig{
		Provider:          "anthropic",
		ModelQuality:      "quality-model",
		ModelFast:         "fast-model",
		ModelSelection:    config.SelectQuality,
		MaxTokens:         4096,
		Temperature:       0.7,
		Timeout:           2 * time.Second,
		PromptTokenBudget: 6000,
		WeeksPerPhase:     4,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
