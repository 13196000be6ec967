package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/graph"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	"github.com/Chative-core-poc-v1/lexroute/internal/agent/repo"
	"github.com/Chative-core-poc-v1/lexroute/internal/core"
	"github.com/Chative-core-poc-v1/lexroute/internal/server"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
	pkgredis "github.com/Chative-core-poc-v1/lexroute/pkg/redis"
	pkgsqlite "github.com/Chative-core-poc-v1/lexroute/pkg/sqlite"
)

const (
	storeSQLite = "sqlite"
	storeRedis  = "redis"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Infrastructure
	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"`
	Sqlite      pkgsqlite.Config
	Redis       pkgredis.Config
	Server      server.Config

	// Agent configs
	Router       model.RouterModelConfig
	Response     model.ResponseModelConfig
	Search       model.SearchConfig
	Conversation model.ConversationConfig
}

// loadConfig reads the env file (a missing file is only a warning), binds
// the environment and initialises logging.
func loadConfig() (*AppConfig, error) {
	envErr := godotenv.Load(envFile)

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	env := core.ParseEnvironment(cfg.Environment)
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logx.Init(logx.LoggerOpts{Environment: env, Level: level})

	if envErr != nil {
		if errors.Is(envErr, fs.ErrNotExist) {
			logx.Warn().Str("file", envFile).Msg("Could not load .env file")
		} else {
			return nil, fmt.Errorf("load %s: %w", envFile, envErr)
		}
	}
	return &cfg, nil
}

// openRepository builds the conversation store selected by STORE_DRIVER. The
// returned closer releases the underlying connection.
func openRepository(ctx context.Context, cfg *AppConfig) (model.ConversationRepository, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreDriver)) {
	case storeSQLite, "":
		db, err := cfg.Sqlite.Open(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		r, err := repo.NewSQLiteConversationRepository(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logx.Debug().Str("path", cfg.Sqlite.Path).Msg("Using SQLite conversation store")
		return r, db, nil
	case storeRedis:
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis store: %w", err)
		}
		logx.Debug().Msg("Using Redis conversation store")
		return repo.NewRedisConversationRepository(rdb, cfg.Conversation.TTL), rdb, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", cfg.StoreDriver, storeSQLite, storeRedis)
	}
}

// buildRunner composes the router graph over the given store.
func buildRunner(ctx context.Context, cfg *AppConfig, store model.ConversationRepository) (graph.Runner, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	return graph.BuildRouterGraph(ctx, graph.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		RouterModel:      cfg.Router,
		ResponseModel:    cfg.Response,
		Search:           cfg.Search,
		Conversation:     cfg.Conversation,
		ConversationRepo: store,
	})
}
