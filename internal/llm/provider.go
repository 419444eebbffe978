// Package llm holds the model provider abstraction used for phase generation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"alcyxob/program-generator/internal/config"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model     string
	Messages  []Message
	MaxTokens int
	// Temperature is nil to use the provider default.
	Temperature *float64
	// JSONMode asks the provider to constrain output to a JSON object when it
	// supports doing so.
	JSONMode bool
}

// TokenUsage contains token consumption details.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a provider-agnostic completion result.
type Response struct {
	Content      string
	Model        string
	Usage        TokenUsage
	FinishReason string
}

// Provider performs a single completion. Implementations do not retry.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Option configures a provider.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets the logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewProvider builds the provider named in the generation config.
func NewProvider(cfg config.GenerationConfig, opts ...Option) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("generation.api_key is required")
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, opts...), nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
