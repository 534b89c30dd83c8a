package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-kiu/internal/account"
	"github.com/p-n-ai/pai-kiu/internal/ai"
	"github.com/p-n-ai/pai-kiu/internal/assessment"
	"github.com/p-n-ai/pai-kiu/internal/certificate"
	"github.com/p-n-ai/pai-kiu/internal/events"
	"github.com/p-n-ai/pai-kiu/internal/httpapi"
	"github.com/p-n-ai/pai-kiu/internal/material"
	"github.com/p-n-ai/pai-kiu/internal/platform/cache"
	"github.com/p-n-ai/pai-kiu/internal/platform/config"
	"github.com/p-n-ai/pai-kiu/internal/platform/database"
	"github.com/p-n-ai/pai-kiu/internal/platform/identity"
	"github.com/p-n-ai/pai-kiu/internal/platform/metrics"
	"github.com/p-n-ai/pai-kiu/internal/prompt"
	"github.com/p-n-ai/pai-kiu/internal/searchapi"
	"github.com/p-n-ai/pai-kiu/internal/transcript"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	// Generation makes several sequential model calls within one request.
	writeTimeout := 2*cfg.AI.Timeout + 30*time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log config.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// app is the wired service and the resources it owns.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires every collaborator from cfg. Without a database URL the
// stores live in memory; without a cache URL sessions and budgets do too.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	router := newRouter(cfg)
	prompts, err := prompt.NewLoader(cfg.PromptsPath)
	if err != nil {
		return fail(fmt.Errorf("loading prompts: %w", err))
	}

	searchOpts := []searchapi.Option{searchapi.WithLanguage(cfg.SearchAPI.Language)}
	if cfg.SearchAPI.BaseURL != "" {
		searchOpts = append(searchOpts, searchapi.WithBaseURL(cfg.SearchAPI.BaseURL))
	}
	search := searchapi.New(cfg.SearchAPI.APIKey, searchOpts...)

	deps := httpapi.Deps{
		Verifier: identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience),
		Pipeline: assessment.NewPipeline(assessment.PipelineConfig{
			Completer: router,
			Prompts:   prompts,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxTokens,
		}),
		Transcripts:    transcript.NewService(search, cfg.Transcript.Pace),
		Websites:       search,
		Events:         events.Nop{},
		Metrics:        metrics.New(),
		OriginPatterns: cfg.Server.AllowedOrigins,
	}
	composer := certificate.NewComposer(cfg.CertificateKey())

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, database.Options{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, db.Close)
		if err := database.Migrate(ctx, db.Pool); err != nil {
			return fail(err)
		}

		certs, err := certificate.NewPostgresStore(db.Pool)
		if err != nil {
			return fail(err)
		}
		mats, err := material.NewPostgresStore(db.Pool)
		if err != nil {
			return fail(err)
		}
		profiles, err := account.NewPostgresStore(db.Pool)
		if err != nil {
			return fail(err)
		}
		deps.Certificates = certificate.NewService(certs, composer)
		deps.Materials = material.NewService(mats)
		deps.Profiles = profiles
		deps.Events = events.NewPostgres(db.Pool)
		deps.Checks = append(deps.Checks, httpapi.NamedCheck{Name: "database", Checker: db})
	} else {
		slog.Warn("no database configured, records are kept in memory")
		deps.Certificates = certificate.NewService(certificate.NewMemoryStore(), composer)
		deps.Materials = material.NewService(material.NewMemoryStore())
		deps.Profiles = account.NewMemoryStore()
	}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL, cache.Options{})
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		deps.Sessions = assessment.NewRedisSessionStore(c.Client, cfg.Session.TTL)
		deps.Budget = ai.NewRedisBudget(c.Client, cfg.Budget.DailyTokens)
		deps.Checks = append(deps.Checks, httpapi.NamedCheck{Name: "cache", Checker: c})
	} else {
		slog.Warn("no cache configured, sessions are kept in memory")
		deps.Sessions = assessment.NewMemorySessionStore(cfg.Session.TTL)
		deps.Budget = ai.NewInMemoryBudget(cfg.Budget.DailyTokens)
	}
	deps.Checks = append(deps.Checks, httpapi.NamedCheck{Name: "ai", Checker: router})

	a.handler = httpapi.New(deps).Handler()
	return a, nil
}

// newRouter registers every configured provider in priority order.
func newRouter(cfg *config.Config) *ai.Router {
	client := &http.Client{Timeout: cfg.AI.Timeout}
	router := ai.NewRouter()

	if key := cfg.AI.OpenAI.APIKey; key != "" {
		opts := []ai.OpenAIOption{ai.WithHTTPClient(client)}
		if cfg.AI.OpenAI.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(cfg.AI.OpenAI.BaseURL))
		}
		router.Register("openai", ai.NewOpenAIProvider(key, opts...))
		slog.Info("AI provider registered", "provider", "openai")
	}
	if key := cfg.AI.DeepSeek.APIKey; key != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(key, ai.WithHTTPClient(client)))
		slog.Info("AI provider registered", "provider", "deepseek")
	}
	if key := cfg.AI.OpenRouter.APIKey; key != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(key, cfg.Server.PublicURL, ai.WithHTTPClient(client)))
		slog.Info("AI provider registered", "provider", "openrouter")
	}
	if cfg.AI.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.AI.Ollama.URL,
			ai.WithOllamaHTTPClient(client),
			ai.WithOllamaModel(cfg.AI.Ollama.Model),
		))
		slog.Info("AI provider registered", "provider", "ollama", "url", cfg.AI.Ollama.URL)
	}
	return router
}
