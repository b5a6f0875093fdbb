// Package server exposes the assistant over HTTP: a single-page UI, file
// uploads, GitHub fetching, question answering and per-session history.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Protocol-Lattice/codeassist"
	"github.com/Protocol-Lattice/codeassist/src/github"
	"github.com/Protocol-Lattice/codeassist/src/observability"
	"github.com/Protocol-Lattice/codeassist/src/uploads"
)

// ContentFetcher retrieves repository content.
type ContentFetcher interface {
	Fetch(ctx context.Context, repoURL, path string) (*github.Content, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	assistant        *codeassist.Assistant
	uploads          *uploads.Store
	github           ContentFetcher
	sessions         *sessionManager
	logger           *slog.Logger
	apiKeyConfigured bool
	now              func() time.Time
}

// Options configure a new Server.
type Options struct {
	Assistant        *codeassist.Assistant
	Uploads          *uploads.Store
	GitHub           ContentFetcher
	SecretKey        string
	SessionTTL       time.Duration
	SecureCookie     bool
	APIKeyConfigured bool
	Logger           *slog.Logger
	Now              func() time.Time
}

// New validates opts and returns a Server.
func New(opts Options) (*Server, error) {
	if opts.Assistant == nil {
		return nil, errors.New("server requires an assistant")
	}
	if opts.Uploads == nil {
		return nil, errors.New("server requires an upload store")
	}
	if opts.SecretKey == "" {
		return nil, errors.New("server requires a session secret")
	}
	fetcher := opts.GitHub
	if fetcher == nil {
		fetcher = github.NewClient("", "", 0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		assistant:        opts.Assistant,
		uploads:          opts.Uploads,
		github:           fetcher,
		sessions:         newSessionManager(opts.SecretKey, opts.SessionTTL, opts.SecureCookie),
		logger:           logger,
		apiKeyConfigured: opts.APIKeyConfigured,
		now:              now,
	}, nil
}

// Handler returns the routed handler wrapped in request id, logging and
// panic recovery middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /uploads/{filename}", s.handleUploadedFile)

	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/github", s.handleGitHub)
	mux.HandleFunc("POST /api/ask", s.handleAsk)

	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/clear_history", s.handleClearHistory)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return chainMiddlewares(mux,
		s.withRecover,
		s.withLogging,
		withRequestID,
	)
}
