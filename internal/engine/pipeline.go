// Package engine orchestrates artifact generation: authorize the request,
// gather the owner's records, call the provider and assemble a sanitized
// artifact.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yangwenmai/careerpilot/internal/cache"
	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/provider"
	"github.com/yangwenmai/careerpilot/internal/sanitize"
	"github.com/yangwenmai/careerpilot/internal/validate"
)

// Step names reported in StepError and ErrorInfo.
const (
	StepAuthorize = "authorize"
	StepGather    = "gather"
	StepGenerate  = "generate"
	StepAssemble  = "assemble"
)

// Settings are the generation knobs taken from configuration.
type Settings struct {
	DefaultModel  string
	AllowedModels []string
	Temperature   float64
	MaxTokens     int
	// Timeout bounds each provider attempt.
	Timeout    time.Duration
	MaxRetries int
	JSONMode   bool
	// ResearchTTL is how long volatile company research stays fresh.
	ResearchTTL     time.Duration
	PromptMaxLength int
	PreviewLength   int
	// PostingMinLength is the description length below which a job URL is
	// fetched to enrich the prompt.
	PostingMinLength int
}

// DefaultSettings returns the settings used when configuration is silent.
func DefaultSettings() Settings {
	return Settings{
		DefaultModel:     "gpt-4o-mini",
		AllowedModels:    []string{"gpt-4o-mini", "gpt-4o"},
		Temperature:      0.4,
		MaxTokens:        2000,
		Timeout:          45 * time.Second,
		MaxRetries:       2,
		JSONMode:         true,
		ResearchTTL:      7 * 24 * time.Hour,
		PromptMaxLength:  16000,
		PreviewLength:    500,
		PostingMinLength: 400,
	}
}

// CachedCompany is company research held in memory together with the
// expiry of its volatile fields.
type CachedCompany struct {
	Content   sanitize.CompanyContent
	ExpiresAt time.Time
}

// CompanyCache holds recently generated or loaded company research in memory.
type CompanyCache = cache.Cache[string, CachedCompany]

// Orchestrator runs generation requests. It is safe for concurrent use.
type Orchestrator struct {
	records   ContextSource
	gen       provider.Generator
	repairer  *validate.Repairer
	companies CompanyStore
	artifacts ArtifactSaver
	extractor ContentExtractor
	cache     *CompanyCache
	settings  Settings

	now   func() time.Time
	newID func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCompanyStore enables durable and volatile company persistence.
func WithCompanyStore(s CompanyStore) Option {
	return func(o *Orchestrator) { o.companies = s }
}

// WithArtifactStore persists every assembled artifact.
func WithArtifactStore(s ArtifactSaver) Option {
	return func(o *Orchestrator) { o.artifacts = s }
}

// WithExtractor enables posting enrichment from job URLs.
func WithExtractor(e ContentExtractor) Option {
	return func(o *Orchestrator) { o.extractor = e }
}

// WithCompanyCache serves repeated company research from memory.
func WithCompanyCache(c *CompanyCache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithSettings overrides DefaultSettings.
func WithSettings(s Settings) Option {
	return func(o *Orchestrator) { o.settings = s }
}

// New creates an Orchestrator that reads records from src and generates with gen.
func New(src ContextSource, gen provider.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		records:  src,
		gen:      gen,
		repairer: validate.NewRepairer(gen),
		settings: DefaultSettings(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate dispatches req to the handler for its kind.
func (o *Orchestrator) Generate(ctx context.Context, req model.GenerationRequest) (*model.Artifact, error) {
	switch req.Kind {
	case model.KindResume:
		return o.GenerateResume(ctx, req)
	case model.KindCoverLetter:
		return o.GenerateCoverLetter(ctx, req)
	case model.KindSkillsOptimization:
		return o.GenerateSkillsOptimization(ctx, req)
	case model.KindCompanyResearch:
		return o.GenerateCompanyResearch(ctx, req)
	case model.KindSalaryResearch:
		return o.GenerateSalaryResearch(ctx, req)
	case model.KindPrediction:
		return o.GeneratePrediction(ctx, req)
	default:
		return nil, &StepError{Step: StepAuthorize, Err: fmt.Errorf("%w: unknown kind %q", model.ErrInvalidInput, req.Kind)}
	}
}

// GenerateResume builds a resume, tailored to the job when one is given.
func (o *Orchestrator) GenerateResume(ctx context.Context, req model.GenerationRequest) (*model.Artifact, error) {
	req.Kind = model.KindResume
	return o.run(ctx, req)
}

// GenerateCoverLetter writes a cover letter for a job.
func (o *Orchestrator) GenerateCoverLetter(ctx context.Context, req model.GenerationRequest) (*model.Artifact, error) {
	req.Kind = model.KindCoverLetter
	return o.run(ctx, req)
}

// GenerateSkillsOptimization compares the owner's skills with a job.
func (o *Orchestrator) GenerateSkillsOptimization(ctx context.Context, req model.GenerationRequest) (*model.Artifact, error) {
	req.Kind = model.KindSkillsOptimization
	return o.run(ctx, req)
}

// GenerateSalaryResearch estimates compensation for a job.
func (o *Orchestrator) GenerateSalaryResearch(ctx context.Context, req model.GenerationRequest) (*model.Artifact, error) {
	req.Kind = model.KindSalaryResearch
	return o.run(ctx, req)
}

// GeneratePrediction estimates the outcome of an application. When the
// provider fails or its output cannot be validated, a heuristic estimate is
// returned instead.
func (o *Orchestrator) GeneratePrediction(ctx context.Context, req model.GenerationRequest) (*model.Artifact, error) {
	req.Kind = model.KindPrediction
	return o.run(ctx, req)
}

// run executes the four phases for one request. Nothing is persisted
// unless every phase succeeds.
func (o *Orchestrator) run(ctx context.Context, req model.GenerationRequest) (*model.Artifact, error) {
	job, err := o.authorize(ctx, req)
	if err != nil {
		return nil, &StepError{Step: StepAuthorize, Err: err}
	}
	return o.runAuthorized(ctx, req, job)
}

func (o *Orchestrator) runAuthorized(ctx context.Context, req model.GenerationRequest, job *model.Job) (*model.Artifact, error) {
	gc, err := o.gather(ctx, req, job)
	if err != nil {
		return nil, &StepError{Step: StepGather, Err: err}
	}

	out, err := o.generate(ctx, req, gc)
	if err != nil {
		if req.Kind == model.KindPrediction && fallbackEligible(err) {
			return o.predictionFallback(ctx, req, gc, err)
		}
		return nil, &StepError{Step: StepGenerate, Err: err}
	}

	a, err := o.assemble(ctx, req, gc, out)
	if err != nil {
		if req.Kind == model.KindPrediction && fallbackEligible(err) {
			return o.predictionFallback(ctx, req, gc, err)
		}
		return nil, &StepError{Step: StepAssemble, Err: err}
	}
	return a, nil
}

// fallbackEligible reports whether a failure may be replaced by the
// heuristic prediction. Bad input never is.
func fallbackEligible(err error) bool {
	return errors.Is(err, model.ErrValidation) ||
		errors.Is(err, model.ErrProviderTransient) ||
		errors.Is(err, model.ErrProviderPermanent)
}

// StepError wraps an error with the step name that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Info converts err into the serialised error body returned to callers.
func Info(err error, now time.Time) model.ErrorInfo {
	step := "request"
	var se *StepError
	if errors.As(err, &se) {
		step = se.Step
	}
	return model.ErrorInfo{
		FailedStep: step,
		Message:    err.Error(),
		Retryable:  model.Retryable(err),
		FailedAt:   now.UTC().Format(time.RFC3339),
	}
}
