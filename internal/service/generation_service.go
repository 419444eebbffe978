package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"alcyxob/program-generator/internal/config"
	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/llm"
)

// GenerationResult is a validated phase plus what it cost to produce.
type GenerationResult struct {
	Phase      *domain.ValidatedPhase
	Model      string
	TokensUsed int
	Attempts   int
	// Transcript is the full conversation, model replies included.
	Transcript []llm.Message
}

// PhaseGenerator produces one validated phase per call.
type PhaseGenerator interface {
	Generate(ctx context.Context, in PromptInput) (*GenerationResult, error)
}

type phaseGenerator struct {
	provider  llm.Provider
	converter *PhaseConverter
	cfg       config.GenerationConfig
	logger    *slog.Logger
}

// NewPhaseGenerator creates the generation client.
func NewPhaseGenerator(provider llm.Provider, converter *PhaseConverter, cfg config.GenerationConfig, logger *slog.Logger) PhaseGenerator {
	return &phaseGenerator{
		provider:  provider,
		converter: converter,
		cfg:       cfg,
		logger:    logger,
	}
}

// maxAttempts is the first call plus one repair retry.
const maxAttempts = 2

// Generate builds the prompt, calls the model under a single deadline, and
// validates the reply. Malformed output gets exactly one repair attempt;
// provider failures and timeouts are returned immediately. Every failure is a
// *GenerationError carrying the tokens spent so far.
func (g *phaseGenerator) Generate(ctx context.Context, in PromptInput) (*GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	prompt := BuildPhasePrompt(in, g.cfg.PromptTokenBudget)
	model := g.selectModel(in.PhaseNumber, prompt)
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: BuildSystemPrompt()},
		{Role: llm.RoleUser, Content: prompt},
	}

	res := &GenerationResult{Model: model}
	temp := g.cfg.Temperature
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt
		start := time.Now()
		resp, err := g.provider.Complete(ctx, llm.Request{
			Model:       model,
			Messages:    messages,
			MaxTokens:   g.cfg.MaxTokens,
			Temperature: &temp,
			JSONMode:    true,
		})
		if err != nil {
			reason := "model call failed"
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				reason = "model call timed out"
			}
			return nil, g.fail(res, messages, reason, err)
		}

		res.TokensUsed += resp.Usage.TotalTokens
		if resp.Model != "" {
			res.Model = resp.Model
		}
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})

		phase, perr := g.parse(resp.Content, in.PhaseNumber)
		if perr == nil {
			g.logger.Debug("Phase generated",
				"phase", in.PhaseNumber,
				"model", res.Model,
				"attempt", attempt,
				"tokens", res.TokensUsed,
				"latency", time.Since(start))
			res.Phase = phase
			res.Transcript = messages
			return res, nil
		}

		lastErr = perr
		g.logger.Warn("Model output rejected",
			"phase", in.PhaseNumber,
			"attempt", attempt,
			"finishReason", resp.FinishReason,
			"error", perr)
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: repairPrompt(perr)})
	}

	return nil, g.fail(res, messages, "invalid model output after repair", lastErr)
}

func (g *phaseGenerator) fail(res *GenerationResult, transcript []llm.Message, reason string, err error) error {
	return &GenerationError{
		Reason:     reason,
		Attempts:   res.Attempts,
		TokensUsed: res.TokensUsed,
		Err:        err,
		Model:      res.Model,
		Transcript: transcript,
	}
}

// parse extracts, repairs, decodes and validates one model reply.
func (g *phaseGenerator) parse(content string, phaseNumber int) (*domain.ValidatedPhase, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return nil, errors.New("response contains no JSON object")
	}
	var gp GeneratedPhase
	if err := json.Unmarshal([]byte(llm.RepairJSON(raw)), &gp); err != nil {
		return nil, fmt.Errorf("response is not valid phase JSON: %w", err)
	}
	return g.converter.Convert(&gp, phaseNumber)
}

// selectModel picks the model for a phase. In auto mode the fast model takes
// continuation phases whose prompt is under half the budget.
func (g *phaseGenerator) selectModel(phaseNumber int, prompt string) string {
	switch g.cfg.ModelSelection {
	case config.SelectFast:
		return orDefault(g.cfg.ModelFast, g.cfg.ModelQuality)
	case config.SelectAuto:
		small := g.cfg.PromptTokenBudget <= 0 || EstimateTokens(prompt) < g.cfg.PromptTokenBudget/2
		if phaseNumber > 1 && small && g.cfg.ModelFast != "" {
			return g.cfg.ModelFast
		}
	}
	return g.cfg.ModelQuality
}
