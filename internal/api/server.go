package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yangwenmai/careerpilot/internal/acquire"
	"github.com/yangwenmai/careerpilot/internal/engine"
	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/store"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// ownerHeader carries the authenticated owner, set by the upstream gateway.
const ownerHeader = "X-User-ID"

// Generator runs one generation request. engine.Orchestrator implements it.
type Generator interface {
	Generate(ctx context.Context, req model.GenerationRequest) (*model.Artifact, error)
}

// Extractor fetches live web content. acquire.Engine implements it.
type Extractor interface {
	Extract(ctx context.Context, url string, opts acquire.Options) (*acquire.Result, error)
}

// ArtifactReader reads persisted artifacts, scoped to their owner.
type ArtifactReader interface {
	GetArtifact(ctx context.Context, userID, id string) (*model.Artifact, error)
	ListArtifacts(ctx context.Context, f store.ArtifactFilter) ([]model.Artifact, error)
}

// Deps holds the collaborators of the HTTP and MCP surfaces.
type Deps struct {
	Generator Generator
	Extractor Extractor
	Artifacts ArtifactReader
	// CORSOrigin is the allowed CORS origin. Empty means "*".
	CORSOrigin string
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	deps   Deps
	router chi.Router
}

// New creates a new API server.
func New(deps Deps) *Server {
	srv := &Server{deps: deps, router: chi.NewRouter()}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.deps.CORSOrigin, limitBody(jsonContent(s.router)))
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireOwner)
		r.Post("/generate/{kind}", s.handleGenerate)
		r.Post("/extract", s.handleExtract)
		r.Get("/artifacts", s.handleListArtifacts)
		r.Get("/artifacts/{id}", s.handleGetArtifact)
	})
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// corsMiddleware sets CORS headers for the configured origin.
func corsMiddleware(origin string, next http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+ownerHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type ownerKey struct{}

// requireOwner rejects requests without an owner and stores it in the context.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(ownerHeader))
		if owner == "" {
			writeFailure(w, &engine.StepError{Step: engine.StepAuthorize, Err: model.ErrUnauthorized})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeFailure writes err as an ErrorInfo body with a status derived from
// its sentinel.
func writeFailure(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), engine.Info(err, time.Now()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrProviderTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrProviderPermanent), errors.Is(err, model.ErrAcquisition):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
