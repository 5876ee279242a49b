package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/taskchat/server/internal/agent/conversations"
	"github.com/taskchat/server/internal/agent/history"
	"github.com/taskchat/server/internal/agent/model"
	"github.com/taskchat/server/internal/agent/runner"
	"github.com/taskchat/server/internal/agent/tools"
	"github.com/taskchat/server/internal/core"
	"github.com/taskchat/server/internal/server"
	"github.com/taskchat/server/internal/store"
	logx "github.com/taskchat/server/pkg/logger"
	pkgredis "github.com/taskchat/server/pkg/redis"
	pkgsqlite "github.com/taskchat/server/pkg/sqlite"
)

// AppConfig defines all configurable parameters for the service, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	SQLite pkgsqlite.Config
	Redis  pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Model   model.ChatModelConfig
	Agent   model.AgentConfig
	History model.HistoryConfig

	// HTTP boundary
	HTTP      server.Config
	RateLimit server.RateLimitConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})

	db, err := cfg.SQLite.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to open sqlite database")
	}
	defer db.Close()

	st := store.New(db)
	if err := st.InitSchema(ctx); err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise database schema")
	}

	// Redis is optional: without it chat requests are simply not rate limited.
	var limiter server.RateLimiter = server.NoopLimiter{}
	if cfg.Redis.URL != "" {
		rdb, err := cfg.Redis.New()
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise redis client")
		}
		defer rdb.Close()
		limiter = server.NewRedisLimiter(rdb, cfg.RateLimit)
		logx.Info().Msg("Redis rate limiter enabled")
	}

	cm, err := model.NewChatModel(ctx, model.ProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build chat model")
	}

	registry := tools.NewRegistry(st)
	converter := history.NewConverter(cfg.History.SoftLimit, cfg.History.RecentWindow)
	builder := conversations.NewBuilder(st, converter)

	rn, err := runner.New(cm, registry, builder, st, cfg.Model, cfg.Agent)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build orchestration runner")
	}

	srv, err := server.New(cfg.HTTP, rn, st, limiter)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build HTTP server")
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", cfg.HTTP.Addr).Str("env", env.String()).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logx.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
