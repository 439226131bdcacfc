package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/yangwenmai/careerpilot/internal/acquire"
	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/prompt"
	"github.com/yangwenmai/careerpilot/internal/provider"
	"github.com/yangwenmai/careerpilot/internal/sanitize"
)

// gathered is the context assembled for one request.
type gathered struct {
	job         *model.Job
	companyName string
	prompt      prompt.Context
	records     sanitize.Records
	// postingStrategy names the acquisition strategy that fetched the posting.
	postingStrategy acquire.Strategy
}

// generation is one successful provider call and how it was made.
type generation struct {
	prompt string
	opts   provider.Options
	res    *provider.Result
}

type needs uint16

const (
	needProfile needs = 1 << iota
	needSkills
	needEmployment
	needEducation
	needProjects
	needCertifications
	needPosting
	needCompany
)

// kindNeeds lists the records each prompt builder reads.
var kindNeeds = map[model.Kind]needs{
	model.KindResume:             needProfile | needSkills | needEmployment | needEducation | needProjects | needCertifications | needPosting,
	model.KindCoverLetter:        needProfile | needSkills | needEmployment | needProjects | needPosting,
	model.KindSkillsOptimization: needProfile | needSkills | needEmployment | needCertifications | needPosting,
	model.KindCompanyResearch:    needCompany,
	model.KindSalaryResearch:     needProfile | needEmployment | needPosting,
	model.KindPrediction:         needProfile | needSkills | needEmployment | needEducation | needCertifications | needPosting | needCompany,
}

// ---------------------------------------------------------------------------
// Phase 1: Authorize
// ---------------------------------------------------------------------------

// authorize checks the owner and loads the referenced job, verifying that
// the owner holds it. No provider call happens before this returns.
func (o *Orchestrator) authorize(ctx context.Context, req model.GenerationRequest) (*model.Job, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, model.ErrUnauthorized
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", model.ErrInvalidInput, req.Kind)
	}
	if req.Kind.RequiresJob() && req.JobID == nil {
		return nil, fmt.Errorf("%w: %s requires a job", model.ErrInvalidInput, req.Kind)
	}
	if req.Kind == model.KindCompanyResearch && req.JobID == nil && strings.TrimSpace(req.CompanyName) == "" {
		return nil, fmt.Errorf("%w: company research requires a job or a company name", model.ErrInvalidInput)
	}
	if req.JobID == nil {
		return nil, nil
	}

	job, err := o.records.GetJob(ctx, *req.JobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job.UserID != req.UserID {
		return nil, fmt.Errorf("job %d: %w", *req.JobID, model.ErrForbidden)
	}
	return job, nil
}

// ---------------------------------------------------------------------------
// Phase 2: Gather
// ---------------------------------------------------------------------------

// gather loads the profile and then fetches every supplementary collection
// in parallel. Supplementary failures degrade to empty collections.
func (o *Orchestrator) gather(ctx context.Context, req model.GenerationRequest, job *model.Job) (*gathered, error) {
	n := kindNeeds[req.Kind]
	gc := &gathered{
		job:         job,
		companyName: companyName(req, job),
		prompt: prompt.Context{
			Job:          job,
			CompanyName:  strings.TrimSpace(req.CompanyName),
			Options:      req.Options,
			Instructions: req.Instructions,
		},
	}

	if n&needProfile != 0 {
		p, err := o.records.GetProfile(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		gc.records.Profile = p
	}

	g, gctx := errgroup.WithContext(ctx)
	rec := &gc.records
	if n&needSkills != 0 {
		g.Go(func() error {
			rec.Skills = bestEffort(gctx, "skills", req.UserID, o.records.ListSkills)
			return nil
		})
	}
	if n&needEmployment != 0 {
		g.Go(func() error {
			rec.Employment = bestEffort(gctx, "employment", req.UserID, o.records.ListEmployment)
			return nil
		})
	}
	if n&needEducation != 0 {
		g.Go(func() error {
			rec.Education = bestEffort(gctx, "education", req.UserID, o.records.ListEducation)
			return nil
		})
	}
	if n&needProjects != 0 {
		g.Go(func() error {
			rec.Projects = bestEffort(gctx, "projects", req.UserID, o.records.ListProjects)
			return nil
		})
	}
	if n&needCertifications != 0 {
		g.Go(func() error {
			rec.Certifications = bestEffort(gctx, "certifications", req.UserID, o.records.ListCertifications)
			return nil
		})
	}
	if n&needPosting != 0 && o.wantsPosting(job) {
		g.Go(func() error {
			res, err := o.extractor.Extract(gctx, job.URL, acquire.Options{})
			if err != nil {
				slog.Warn("posting enrichment failed, continuing without it",
					"job_id", job.ID, "url", job.URL, "error", err)
				return nil
			}
			gc.prompt.PostingText = res.Text
			gc.postingStrategy = res.Meta.Strategy
			return nil
		})
	}
	if n&needCompany != 0 && o.companies != nil && gc.companyName != "" {
		g.Go(func() error {
			c, err := o.companies.GetCompany(gctx, gc.companyName)
			if err != nil {
				if !errors.Is(err, model.ErrNotFound) {
					slog.Warn("company lookup failed", "company", gc.companyName, "error", err)
				}
				return nil
			}
			gc.prompt.Company = c
			return nil
		})
		g.Go(func() error {
			r, err := o.companies.GetCompanyResearch(gctx, gc.companyName)
			if err != nil {
				if !errors.Is(err, model.ErrNotFound) {
					slog.Warn("company research lookup failed", "company", gc.companyName, "error", err)
				}
				return nil
			}
			if r.Fresh(o.now()) {
				gc.prompt.Research = r
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gc.prompt.Profile = rec.Profile
	gc.prompt.Skills = rec.Skills
	gc.prompt.Employment = rec.Employment
	gc.prompt.Education = rec.Education
	gc.prompt.Projects = rec.Projects
	gc.prompt.Certifications = rec.Certifications
	return gc, nil
}

func (o *Orchestrator) wantsPosting(job *model.Job) bool {
	return o.extractor != nil && job != nil && job.URL != "" &&
		utf8.RuneCountInString(job.Description) < o.settings.PostingMinLength
}

func bestEffort[T any](ctx context.Context, what, userID string, list func(context.Context, string) ([]T, error)) []T {
	v, err := list(ctx, userID)
	if err != nil {
		slog.Warn("supplementary context unavailable, continuing without it",
			"records", what, "user_id", userID, "error", err)
		return []T{}
	}
	if v == nil {
		return []T{}
	}
	return v
}

func companyName(req model.GenerationRequest, job *model.Job) string {
	if name := strings.TrimSpace(req.CompanyName); name != "" {
		return name
	}
	if job != nil {
		return strings.TrimSpace(job.Company)
	}
	return ""
}

// ---------------------------------------------------------------------------
// Phase 3: Generate
// ---------------------------------------------------------------------------

func (o *Orchestrator) generate(ctx context.Context, req model.GenerationRequest, gc *gathered) (*generation, error) {
	text, err := prompt.Build(req.Kind, gc.prompt)
	if err != nil {
		return nil, err
	}
	text = prompt.Sanitize(text, o.settings.PromptMaxLength)
	opts := o.providerOptions(req.Kind, req.Options.Model)

	slog.Debug("calling provider", "kind", req.Kind, "user_id", req.UserID, "model", opts.Model, "prompt_runes", utf8.RuneCountInString(text))
	res, err := o.gen.Generate(ctx, req.Kind, text, opts)
	if err != nil {
		return nil, err
	}
	return &generation{prompt: text, opts: opts, res: res}, nil
}

func (o *Orchestrator) providerOptions(kind model.Kind, requested string) provider.Options {
	return provider.Options{
		Model:       o.selectModel(requested),
		Temperature: o.settings.Temperature,
		MaxTokens:   o.settings.MaxTokens,
		Timeout:     o.settings.Timeout,
		MaxRetries:  o.settings.MaxRetries,
		JSON:        o.settings.JSONMode && kind.Structured(),
	}
}

// selectModel honours a requested model only when it is on the allow-list.
func (o *Orchestrator) selectModel(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == o.settings.DefaultModel {
		return o.settings.DefaultModel
	}
	if slices.Contains(o.settings.AllowedModels, requested) {
		return requested
	}
	slog.Warn("requested model not allowed, using default", "model", requested, "default", o.settings.DefaultModel)
	return o.settings.DefaultModel
}

// ---------------------------------------------------------------------------
// Phase 4: Assemble
// ---------------------------------------------------------------------------

func (o *Orchestrator) assemble(ctx context.Context, req model.GenerationRequest, gc *gathered, out *generation) (*model.Artifact, error) {
	report, err := o.repairer.Ensure(ctx, req.Kind, out.res, out.opts)
	if err != nil {
		return nil, err
	}

	var content any
	var title string
	switch req.Kind {
	case model.KindResume:
		c := sanitize.NormalizeResume(report.Value, gc.records)
		content, title = c, c.Title
	case model.KindCoverLetter:
		body, _ := report.Value.(string)
		content, title = sanitize.NormalizeCoverLetter(body), "Cover Letter - "+jobLabel(gc.job)
	case model.KindSkillsOptimization:
		content, title = sanitize.NormalizeSkills(report.Value), "Skills Analysis - "+jobLabel(gc.job)
	case model.KindCompanyResearch:
		c := sanitize.NormalizeCompany(gc.companyName, report.Value)
		o.saveCompany(ctx, c)
		content, title = c, "Company Research - "+c.Name
	case model.KindSalaryResearch:
		content, title = sanitize.NormalizeSalary(report.Value), "Salary Research - "+jobLabel(gc.job)
	case model.KindPrediction:
		content, title = sanitize.NormalizePrediction(report.Value), "Outcome Prediction - "+jobLabel(gc.job)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", model.ErrInvalidInput, req.Kind)
	}

	meta := model.ArtifactMetadata{
		Provider:      out.res.Meta.Provider,
		Mock:          out.res.Meta.Mock,
		Tokens:        out.res.Tokens + report.Tokens,
		PromptPreview: prompt.Preview(out.prompt, o.settings.PreviewLength),
		Repaired:      report.Repaired,
		Extras: map[string]any{
			"attempts": out.res.Meta.Attempts,
			"retries":  out.res.Meta.Retries,
		},
	}
	if gc.postingStrategy != "" {
		meta.Extras["posting_strategy"] = string(gc.postingStrategy)
	}
	modelName := out.res.Meta.Model
	if modelName == "" {
		modelName = out.opts.Model
	}
	return o.finish(ctx, req, title, modelName, content, meta), nil
}

// finish stamps and persists an artifact. A persistence failure is logged
// and never fails the request.
func (o *Orchestrator) finish(ctx context.Context, req model.GenerationRequest, title, modelName string, content any, meta model.ArtifactMetadata) *model.Artifact {
	meta.GeneratedAt = o.now().UTC().Format(time.RFC3339)
	a := model.NewArtifact(o.newID(), req.UserID, req.JobID, req.Kind, title, modelName, content, meta)

	if o.artifacts != nil {
		if err := o.artifacts.SaveArtifact(ctx, a); err != nil {
			slog.Warn("failed to persist artifact", "artifact_id", a.ID, "kind", a.Kind, "user_id", a.UserID, "error", err)
		}
	}
	slog.Info("artifact generated", "artifact_id", a.ID, "kind", a.Kind, "user_id", a.UserID,
		"provider", meta.Provider, "tokens", meta.Tokens, "repaired", meta.Repaired, "fallback", meta.Fallback)
	return &a
}

func jobLabel(j *model.Job) string {
	if j == nil {
		return "General"
	}
	if j.Company == "" {
		return j.Title
	}
	return j.Title + " at " + j.Company
}
