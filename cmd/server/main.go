package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/lightup/internal/ai"
	"github.com/p-n-ai/lightup/internal/assessment"
	"github.com/p-n-ai/lightup/internal/course"
	"github.com/p-n-ai/lightup/internal/platform/cache"
	"github.com/p-n-ai/lightup/internal/platform/config"
	"github.com/p-n-ai/lightup/internal/platform/database"
	"github.com/p-n-ai/lightup/internal/progress"
	"github.com/p-n-ai/lightup/internal/report"
	"github.com/p-n-ai/lightup/internal/roadmap"
	"github.com/p-n-ai/lightup/internal/stats"
	"github.com/p-n-ai/lightup/internal/store"
	"github.com/p-n-ai/lightup/internal/studyplan"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	rc, err := cache.New(ctx, cfg.Cache.URL, cfg.Cache.Prefix)
	if err != nil {
		return fmt.Errorf("connect cache: %w", err)
	}
	defer func() { _ = rc.Close() }()

	st, err := store.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}

	router, err := newAIRouter(cfg.AI)
	if err != nil {
		return err
	}
	gen := ai.NewGenerator(router)

	engine := progress.NewEngine(st, progress.WithEventLogger(progress.NewPostgresEventLogger(db.Pool)))
	statsSvc := stats.NewService(st, stats.WithConfig(stats.Config{
		LogWindow:   cfg.Stats.LogWindow,
		AverageDays: cfg.Stats.AverageWindowDays,
		TrendWeeks:  cfg.Stats.TrendWeeks,
	}))
	courses := course.NewService(st, engine, gen)

	loader, err := roadmap.NewLoader(cfg.RoadmapPath)
	if err != nil {
		return err
	}
	if _, err := courses.SeedPresets(ctx, loader); err != nil {
		return fmt.Errorf("seed presets: %w", err)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: newMux(services{
			courses:     courses,
			stats:       statsSvc,
			assessments: assessment.NewService(st, engine, gen),
			plans:       studyplan.NewService(st, engine, gen, statsSvc, studyplan.WithCache(rc, cfg.Cache.StudyPlanTTL)),
			reports:     report.NewExporter(st, statsSvc),
			checks: map[string]func(context.Context) error{
				"database": db.HealthCheck,
				"cache":    rc.HealthCheck,
			},
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newAIRouter registers every configured provider, each wrapped with retry,
// in the order OpenAI, Anthropic, DeepSeek, Google, OpenRouter, Ollama.
func newAIRouter(cfg config.AIConfig) (*ai.Router, error) {
	retry := ai.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxAttempts
	if cfg.RetryWait > 0 {
		retry.InitialWait = cfg.RetryWait
	}

	router := ai.NewRouter(ai.WithTimeout(cfg.Timeout))
	register := func(name string, p ai.Provider) {
		router.Register(name, ai.WithRetry(p, retry))
		slog.Info("AI provider registered", "provider", name)
	}

	if cfg.OpenAI.APIKey != "" {
		register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey, ai.WithModel(cfg.OpenAI.Model)))
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.Anthropic.APIKey, ai.WithAnthropicModel(cfg.Anthropic.Model))
		if err != nil {
			return nil, err
		}
		register("anthropic", p)
	}
	if cfg.DeepSeek.APIKey != "" {
		register("deepseek", ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey, ai.WithModel(cfg.DeepSeek.Model)))
	}
	if cfg.Google.APIKey != "" {
		register("google", ai.NewGoogleProvider(cfg.Google.APIKey, ai.WithGoogleModel(cfg.Google.Model)))
	}
	if cfg.OpenRouter.APIKey != "" {
		register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey, ai.WithModel(cfg.OpenRouter.Model)))
	}
	if cfg.Ollama.Enabled {
		register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL, ai.WithOllamaModel(cfg.Ollama.Model)))
	}

	if !router.HasProvider() {
		return nil, errors.New("no AI provider configured")
	}
	return router, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
