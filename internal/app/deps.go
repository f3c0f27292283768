package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"cardsmith/internal/cache"
	"cardsmith/internal/config"
	"cardsmith/internal/llm"
	"cardsmith/internal/logger"
	"cardsmith/internal/prompt"
	"cardsmith/internal/queue"
	"cardsmith/internal/store"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config  config.Config
	Log     *slog.Logger
	Store   store.Store
	Queue   queue.Queue
	Cache   cache.Cache
	LLM     llm.Client
	Prompts *prompt.Library
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	// A missing .env file is fine in containerized deployments.
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	c := buildCache(cfg, log)
	llmClient, err := buildLLM(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	prompts, err := prompt.Load(cfg.PromptDir)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to load prompt templates: %w", err)
	}
	return Deps{
		Config:  cfg,
		Log:     log,
		Store:   st,
		Queue:   q,
		Cache:   c,
		LLM:     llmClient,
		Prompts: prompts,
	}, nil
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid option: postgres)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid option: nats)", cfg.QueueProvider)
	}
}

// buildCache never fails: when Redis is unreachable, progress tracking
// degrades to a no-op and the pipeline keeps working.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, progress tracking disabled", "err", err)
			return cache.NewNoOpCache()
		}
		log.Info("using Redis progress cache", "addr", cfg.RedisAddr)
		return c
	default:
		return cache.NewNoOpCache()
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "lmstudio":
		client, err := llm.NewLMStudioClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel,
			log, time.Duration(cfg.LLMTimeout)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LM Studio client: %w", err)
		}
		log.Info("using LM Studio LLM client", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid option: lmstudio)", cfg.LLMProvider)
	}
}
