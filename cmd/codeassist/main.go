// Command codeassist serves the programming assistant web UI and API.
//
// Configuration comes from the environment and an optional .env file
// (created with placeholders on first run):
//
//	export ANTHROPIC_API_KEY=...
//	go run ./cmd/codeassist -addr :5000
//
// Other providers:
//
//	ASSIST_PROVIDER=openai OPENAI_API_KEY=... go run ./cmd/codeassist
//	ASSIST_PROVIDER=ollama OLLAMA_HOST=http://localhost:11434 go run ./cmd/codeassist
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Protocol-Lattice/codeassist"
	"github.com/Protocol-Lattice/codeassist/src/config"
	"github.com/Protocol-Lattice/codeassist/src/github"
	"github.com/Protocol-Lattice/codeassist/src/history"
	"github.com/Protocol-Lattice/codeassist/src/models"
	"github.com/Protocol-Lattice/codeassist/src/observability"
	"github.com/Protocol-Lattice/codeassist/src/server"
	"github.com/Protocol-Lattice/codeassist/src/uploads"
)

var (
	flagAddr    = flag.String("addr", "", "Listen address (overrides PORT)")
	flagEnvFile = flag.String("env", "", "Path to the .env file (overrides ASSIST_ENV_FILE)")
)

const shutdownTimeout = 10 * time.Second

func main() {
	flag.Parse()

	if *flagEnvFile != "" {
		_ = os.Setenv("ASSIST_ENV_FILE", *flagEnvFile)
	}
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fail(err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.APIKeyConfigured() {
		logger.Warn("API key is not configured; answers will report the missing key", "provider", cfg.Provider)
	}
	if cfg.InsecureSecret() {
		logger.Warn("ASSIST_SECRET_KEY is not set; using the insecure development key")
	}

	agent, err := models.NewLLMProvider(ctx, models.ProviderOptions{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.ProviderBaseURL,
	})
	if err != nil {
		return fmt.Errorf("create model provider: %w", err)
	}
	agent = models.TryCreateLimitedLLM(agent, cfg.MaxConcurrentCalls)
	agent = models.TryCreateCachedLLM(agent, cfg.LLMCacheSize, cfg.LLMCacheTTL)

	store, err := history.NewStore(ctx, history.Options{
		Backend:       cfg.HistoryBackend,
		DSN:           cfg.HistoryDSN,
		MongoDatabase: cfg.MongoDatabase,
		Limit:         cfg.HistoryLimit,
		SessionTTL:    cfg.SessionTTL,
		Capacity:      cfg.SessionCapacity,
	})
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	files, err := uploads.NewStore(cfg.UploadDir, cfg.AllowedExtensions, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	catalog, err := codeassist.NewCatalog(cfg.DefaultModel, cfg.ThinkingModels)
	if err != nil {
		return err
	}
	assistant, err := codeassist.New(codeassist.Options{
		Model:             agent,
		History:           store,
		Catalog:           catalog,
		Uploads:           files,
		Temperature:       cfg.Temperature,
		MaxTokens:         cfg.MaxTokens,
		ThinkingMaxTokens: cfg.ThinkingMaxTokens,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Assistant:        assistant,
		Uploads:          files,
		GitHub:           github.NewClient(cfg.GitHubAPIURL, cfg.GitHubToken, cfg.GitHubTimeout),
		SecretKey:        cfg.SecretKey,
		SessionTTL:       cfg.SessionTTL,
		APIKeyConfigured: cfg.APIKeyConfigured(),
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	addr := cfg.Addr()
	if *flagAddr != "" {
		addr = *flagAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "provider", cfg.Provider, "history_backend", cfg.HistoryBackend)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newLogger writes JSON logs to stdout and, when configured, appends them to
// the log file too.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if cfg.LogFile == "" {
		return observability.NewLogger(os.Stdout, cfg.LogLevel), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return observability.NewLogger(io.MultiWriter(os.Stdout, f), cfg.LogLevel), func() { _ = f.Close() }, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
