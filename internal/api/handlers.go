package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yangwenmai/careerpilot/internal/acquire"
	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// POST /api/generate/{kind}
// ---------------------------------------------------------------------------

type generateRequest struct {
	JobID        *int64                  `json:"job_id"`
	CompanyName  string                  `json:"company_name"`
	Instructions string                  `json:"instructions"`
	Options      model.GenerationOptions `json:"options"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	kind, ok := model.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeFailure(w, fmt.Errorf("%w: unknown kind %q", model.ErrInvalidInput, chi.URLParam(r, "kind")))
		return
	}

	var body generateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeFailure(w, fmt.Errorf("%w: invalid JSON body", model.ErrInvalidInput))
			return
		}
	}

	a, err := s.deps.Generator.Generate(r.Context(), model.GenerationRequest{
		Kind:         kind,
		UserID:       ownerFrom(r.Context()),
		JobID:        body.JobID,
		CompanyName:  body.CompanyName,
		Instructions: body.Instructions,
		Options:      body.Options,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ---------------------------------------------------------------------------
// POST /api/extract
// ---------------------------------------------------------------------------

type extractRequest struct {
	URL          string `json:"url"`
	WaitSelector string `json:"wait_selector"`
	TimeoutMS    int    `json:"timeout_ms"`
	MaxRetries   int    `json:"max_retries"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.deps.Extractor == nil {
		writeFailure(w, fmt.Errorf("%w: extraction is disabled", model.ErrAcquisition))
		return
	}
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, fmt.Errorf("%w: invalid JSON body", model.ErrInvalidInput))
		return
	}
	if req.URL == "" {
		writeFailure(w, fmt.Errorf("%w: url is required", model.ErrInvalidInput))
		return
	}

	res, err := s.deps.Extractor.Extract(r.Context(), req.URL, acquire.Options{
		WaitSelector: req.WaitSelector,
		Timeout:      time.Duration(req.TimeoutMS) * time.Millisecond,
		MaxRetries:   req.MaxRetries,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---------------------------------------------------------------------------
// GET /api/artifacts
// ---------------------------------------------------------------------------

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ArtifactFilter{UserID: ownerFrom(r.Context())}

	if v := q.Get("kind"); v != "" {
		kind, ok := model.ParseKind(v)
		if !ok {
			writeFailure(w, fmt.Errorf("%w: unknown kind %q", model.ErrInvalidInput, v))
			return
		}
		filter.Kind = kind
	}
	if v := q.Get("job_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeFailure(w, fmt.Errorf("%w: job_id must be an integer", model.ErrInvalidInput))
			return
		}
		filter.JobID = &id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeFailure(w, fmt.Errorf("%w: limit must be a non-negative integer", model.ErrInvalidInput))
			return
		}
		filter.Limit = n
	}

	artifacts, err := s.deps.Artifacts.ListArtifacts(r.Context(), filter)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if artifacts == nil {
		artifacts = []model.Artifact{}
	}
	writeJSON(w, http.StatusOK, artifacts)
}

// ---------------------------------------------------------------------------
// GET /api/artifacts/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Artifacts.GetArtifact(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
