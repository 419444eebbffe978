package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	S3         S3Config         `mapstructure:"s3"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Generation GenerationConfig `mapstructure:"generation"`
	Credits    CreditsConfig    `mapstructure:"credits"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Ordering   OrderingConfig   `mapstructure:"ordering"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	// ExecutionCeiling is the wall-clock budget the host grants a single request.
	ExecutionCeiling time.Duration `mapstructure:"execution_ceiling"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	// AllowAnonymous accepts a body userId when no bearer token is sent.
	AllowAnonymous bool `mapstructure:"allow_anonymous"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mongo | memory
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
	// Transactions requires a replica set. Disable for a standalone mongod.
	Transactions bool `mapstructure:"transactions"`
}

type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// Model selection strategies.
const (
	SelectQuality = "quality"
	SelectFast    = "fast"
	SelectAuto    = "auto"
)

type GenerationConfig struct {
	Provider           string        `mapstructure:"provider"` // anthropic | openai
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	ModelQuality       string        `mapstructure:"model_quality"`
	ModelFast          string        `mapstructure:"model_fast"`
	ModelSelection     string        `mapstructure:"model_selection"`
	MaxTokens          int           `mapstructure:"max_tokens"`
	Temperature        float64       `mapstructure:"temperature"`
	Timeout            time.Duration `mapstructure:"timeout"`
	PromptTokenBudget  int           `mapstructure:"prompt_token_budget"`
	TrustClientHistory bool          `mapstructure:"trust_client_history"`
	WeeksPerPhase      int           `mapstructure:"weeks_per_phase"`
}

type CreditsConfig struct {
	FreeLimit int `mapstructure:"free_limit"`
	// PremiumLimit of 0 means unbounded.
	PremiumLimit int `mapstructure:"premium_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	Burst             int     `mapstructure:"burst"`
}

type OrderingConfig struct {
	CategoryPriority map[string]int `mapstructure:"category_priority"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, generation.api_key -> GENERATION_API_KEY
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	if err = config.Validate(); err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.execution_ceiling", "60s")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.allow_anonymous", false)

	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "program_generator")
	v.SetDefault("database.transactions", true)

	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.use_ssl", true)

	v.SetDefault("generation.provider", "anthropic")
	v.SetDefault("generation.model_quality", "claude-opus-4-20250514")
	v.SetDefault("generation.model_fast", "claude-sonnet-4-20250514")
	v.SetDefault("generation.model_selection", SelectQuality)
	v.SetDefault("generation.max_tokens", 8192)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.timeout", "45s")
	v.SetDefault("generation.prompt_token_budget", 6000)
	v.SetDefault("generation.trust_client_history", false)
	v.SetDefault("generation.weeks_per_phase", 4)

	v.SetDefault("credits.free_limit", 4)
	v.SetDefault("credits.premium_limit", 0)

	v.SetDefault("rate_limit.requests_per_minute", 6)
	v.SetDefault("rate_limit.burst", 3)

	v.SetDefault("ordering.category_priority", DefaultCategoryPriority())

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// DefaultCategoryPriority is the exercise ordering used when none is configured.
// Categories missing from the map sort last.
func DefaultCategoryPriority() map[string]int {
	return map[string]int{
		"primary":     1,
		"secondary":   2,
		"isolation":   3,
		"cardio":      4,
		"flexibility": 5,
	}
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	if c.Generation.Timeout <= 0 {
		return errors.New("generation.timeout must be positive")
	}
	if c.Server.ExecutionCeiling > 0 && c.Generation.Timeout >= c.Server.ExecutionCeiling {
		return fmt.Errorf("generation.timeout (%s) must be shorter than server.execution_ceiling (%s)",
			c.Generation.Timeout, c.Server.ExecutionCeiling)
	}
	if c.Generation.MaxTokens <= 0 {
		return errors.New("generation.max_tokens must be positive")
	}
	switch c.Generation.ModelSelection {
	case SelectQuality, SelectFast, SelectAuto:
	default:
		return fmt.Errorf("generation.model_selection %q is not one of quality, fast, auto", c.Generation.ModelSelection)
	}
	switch c.Generation.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("generation.provider %q is not supported", c.Generation.Provider)
	}
	switch c.Database.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Credits.FreeLimit < 0 || c.Credits.PremiumLimit < 0 {
		return errors.New("credit limits cannot be negative")
	}
	return nil
}
