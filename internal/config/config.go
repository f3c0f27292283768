package config

import (
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for all services. Extend as needed.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres"`
	DBURL         string `env:"DB_URL"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"`
	QueueURL      string `env:"QUEUE_URL"`

	// Cache (document progress for front-end polling)
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"noop"` // "redis" or "noop"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	ProgressTTL   int    `env:"PROGRESS_TTL" envDefault:"3600"` // seconds

	// LLM (LM Studio or any OpenAI-compatible local server)
	LLMProvider    string  `env:"LLM_PROVIDER" envDefault:"lmstudio"`
	LLMBaseURL     string  `env:"LLM_BASE_URL" envDefault:"http://localhost:1234"`
	LLMAPIKey      string  `env:"LLM_API_KEY" envDefault:"lm-studio"` // local servers ignore the value but the SDK requires one
	LLMModel       string  `env:"LLM_MODEL"`                          // auto-selected when empty
	LLMTimeout     int     `env:"LLM_TIMEOUT" envDefault:"120"`       // seconds
	LLMTemperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.2"`
	LLMMaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"2500"`

	// Text processing
	ChunkMaxWords     int  `env:"CHUNK_MAX_WORDS" envDefault:"200"`
	ChunkMinWords     int  `env:"CHUNK_MIN_WORDS" envDefault:"20"`
	ChunkOverlapWords int  `env:"CHUNK_OVERLAP_WORDS" envDefault:"50"`
	CleanRemoveURLs   bool `env:"CLEAN_REMOVE_URLS" envDefault:"true"`
	CleanRemoveEmails bool `env:"CLEAN_REMOVE_EMAILS" envDefault:"true"`
	CleanWhitespace   bool `env:"CLEAN_WHITESPACE" envDefault:"true"`

	// Card generation
	MaxCardsPerChunk int     `env:"MAX_CARDS_PER_CHUNK" envDefault:"8"`
	RateLimitDelay   float64 `env:"RATE_LIMIT_DELAY" envDefault:"0.5"` // seconds between sequential requests
	MaxConcurrent    int     `env:"MAX_CONCURRENT" envDefault:"0"`     // 0 means sequential mode

	// Summaries
	SummaryTargetWords int     `env:"SUMMARY_TARGET_WORDS" envDefault:"300"`
	BatchPause         float64 `env:"BATCH_PAUSE" envDefault:"1.0"` // seconds between summary batches

	// Prompt templates
	PromptDir string `env:"PROMPT_DIR" envDefault:"prompts"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	cfg.LLMBaseURL = normalizeBaseURL(cfg.LLMBaseURL)
	return cfg
}

// normalizeBaseURL ensures the OpenAI-compatible /v1 suffix LM Studio exposes.
func normalizeBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if base != "" && !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base
}
