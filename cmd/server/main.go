package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloud-ru/finassist-go/internal/api"
	"github.com/cloud-ru/finassist-go/internal/cache"
	"github.com/cloud-ru/finassist-go/internal/chat"
	"github.com/cloud-ru/finassist-go/internal/config"
	"github.com/cloud-ru/finassist-go/internal/recorder"
	"github.com/cloud-ru/finassist-go/internal/tools"
	"github.com/cloud-ru/finassist-go/internal/tracing"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, shutdownTracing, err := tracing.InitTracing(ctx, cfg.OTELServiceName, cfg.OTELEndpoint, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	memCache := cache.NewMemoryCache(cfg.CacheMaxEntries)
	cacheSweeper, err := memCache.StartSweeper(cfg.CacheSweepCron, logger)
	if err != nil {
		return err
	}
	defer cacheSweeper.Stop()

	var resultCache cache.Cache = memCache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer rc.Close()
			resultCache = rc
			logger.Info("redis cache enabled", "addr", cfg.RedisAddr)
		}
	}

	var rec recorder.Recorder = recorder.NoopRecorder{}
	if cfg.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.SQLitePath, logger)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		rec = sr
	}
	defer rec.Close()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	rules, err := chat.LoadRuleBook(cfg.ChatRulesPath)
	if err != nil {
		return err
	}

	sessions := chat.NewSessionStore(cfg.SessionTTL)
	sweeper, err := sessions.StartSweeper(cfg.SessionSweepCron, logger)
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	var limiter *api.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
		defer limiter.Stop()
	}

	srv := api.NewServer(api.Deps{
		Registry: tools.NewRegistry(cfg, tracer),
		Chat:     chat.NewService(provider, rules, sessions, cfg.LLMTimeout, tracer, logger),
		Cache:    resultCache,
		CacheTTL: cfg.CacheTTL,
		Recorder: rec,
		Limiter:  limiter,
		Logger:   logger,

		TrustProxy: cfg.TrustProxy,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("finassist server listening",
			"port", cfg.Port,
			"llm_provider", cfg.LLMProvider,
			"max_principal", cfg.MaxPrincipal,
			"max_rate", cfg.MaxRate,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server exited")
	return nil
}

// newProvider возвращает nil, когда модель не настроена: чат отвечает по правилам
func newProvider(ctx context.Context, cfg *config.Config) (chat.Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		return chat.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIAPIURL, cfg.LLMModel, cfg.LLMTimeout), nil
	case "gemini":
		p, err := chat.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN", "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
