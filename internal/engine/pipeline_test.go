package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yangwenmai/careerpilot/internal/acquire"
	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/provider"
	"github.com/yangwenmai/careerpilot/internal/sanitize"
)

// fakeRecords is an in-memory ContextSource.
type fakeRecords struct {
	profiles   map[string]*model.Profile
	jobs       map[int64]*model.Job
	skills     []model.Skill
	employment []model.Employment
	education  []model.Education
	// listErr makes every supplementary List call fail.
	listErr error
}

func (f *fakeRecords) GetProfile(_ context.Context, userID string) (*model.Profile, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeRecords) GetJob(_ context.Context, id int64) (*model.Job, error) {
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, model.ErrNotFound
}

func (f *fakeRecords) ListSkills(context.Context, string) ([]model.Skill, error) {
	return f.skills, f.listErr
}

func (f *fakeRecords) ListEmployment(context.Context, string) ([]model.Employment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.employment, nil
}

func (f *fakeRecords) ListEducation(context.Context, string) ([]model.Education, error) {
	return f.education, f.listErr
}

func (f *fakeRecords) ListProjects(context.Context, string) ([]model.Project, error) {
	return nil, f.listErr
}

func (f *fakeRecords) ListCertifications(context.Context, string) ([]model.Certification, error) {
	return nil, f.listErr
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		profiles: map[string]*model.Profile{
			"u1": {UserID: "u1", FullName: "Ada Lovelace", Summary: "Analytical engine programmer."},
			"u2": {UserID: "u2", FullName: "Grace Hopper"},
		},
		jobs: map[int64]*model.Job{
			1: {ID: 1, UserID: "u1", Title: "Backend Engineer", Company: "Acme Corp", Description: "Go, PostgreSQL and Kubernetes at scale."},
			2: {ID: 2, UserID: "u2", Title: "Admiral", Company: "Navy"},
		},
		skills: []model.Skill{{Name: "Go", Years: 6}, {Name: "PostgreSQL", Years: 4}},
		employment: []model.Employment{
			{Company: "Babbage Ltd", Title: "Senior Backend Engineer", StartDate: "2020-01", Current: true, Achievements: []string{"Shipped the engine"}},
			{Company: "Early Co", Title: "Developer", StartDate: "2016-01", EndDate: "2019-12"},
		},
	}
}

// countingGenerator wraps another generator and records every call.
type countingGenerator struct {
	next provider.Generator

	mu      sync.Mutex
	calls   int
	prompts []string
	opts    []provider.Options
}

func (g *countingGenerator) Generate(ctx context.Context, kind model.Kind, prompt string, opts provider.Options) (*provider.Result, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	g.mu.Unlock()
	return g.next.Generate(ctx, kind, prompt, opts)
}

func mockGenerator() *countingGenerator {
	return &countingGenerator{next: provider.NewClient(provider.VariantOpenAI, provider.WithMockMode(true))}
}

type fakeArtifacts struct {
	mu    sync.Mutex
	saved []model.Artifact
	err   error
}

func (f *fakeArtifacts) SaveArtifact(_ context.Context, a model.Artifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, a)
	return nil
}

type fakeExtractor struct {
	text string
	err  error
	urls []string
}

func (f *fakeExtractor) Extract(_ context.Context, url string, _ acquire.Options) (*acquire.Result, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return &acquire.Result{Text: f.text, Meta: acquire.Meta{Strategy: acquire.StrategyFullHeaders, Success: true}}, nil
}

func jobID(id int64) *int64 { return &id }

func TestGenerate_OwnershipMismatchMakesNoProviderCall(t *testing.T) {
	gen := mockGenerator()
	arts := &fakeArtifacts{}
	o := New(newFakeRecords(), gen, WithArtifactStore(arts))

	for _, kind := range []model.Kind{model.KindResume, model.KindCoverLetter, model.KindPrediction, model.KindCompanyResearch} {
		t.Run(string(kind), func(t *testing.T) {
			_, err := o.Generate(context.Background(), model.GenerationRequest{Kind: kind, UserID: "u1", JobID: jobID(2)})
			if !errors.Is(err, model.ErrForbidden) {
				t.Fatalf("err = %v, want ErrForbidden", err)
			}
			var se *StepError
			if !errors.As(err, &se) || se.Step != StepAuthorize {
				t.Errorf("err = %v, want StepError at %q", err, StepAuthorize)
			}
		})
	}
	if gen.calls != 0 {
		t.Errorf("provider calls = %d, want 0", gen.calls)
	}
	if len(arts.saved) != 0 {
		t.Errorf("saved %d artifacts, want 0", len(arts.saved))
	}
}

func TestGenerate_RejectsBeforeProviderCall(t *testing.T) {
	tests := []struct {
		name string
		req  model.GenerationRequest
		want error
		step string
	}{
		{"missing owner", model.GenerationRequest{Kind: model.KindResume}, model.ErrUnauthorized, StepAuthorize},
		{"unknown kind", model.GenerationRequest{Kind: "horoscope", UserID: "u1"}, model.ErrInvalidInput, StepAuthorize},
		{"cover letter without job", model.GenerationRequest{Kind: model.KindCoverLetter, UserID: "u1"}, model.ErrInvalidInput, StepAuthorize},
		{"company research without name", model.GenerationRequest{Kind: model.KindCompanyResearch, UserID: "u1"}, model.ErrInvalidInput, StepAuthorize},
		{"unknown job", model.GenerationRequest{Kind: model.KindSalaryResearch, UserID: "u1", JobID: jobID(99)}, model.ErrNotFound, StepAuthorize},
		{"missing profile", model.GenerationRequest{Kind: model.KindResume, UserID: "nobody"}, model.ErrNotFound, StepGather},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := mockGenerator()
			o := New(newFakeRecords(), gen)
			_, err := o.Generate(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if info := Info(err, time.Now()); info.FailedStep != tt.step {
				t.Errorf("FailedStep = %q, want %q", info.FailedStep, tt.step)
			}
			if gen.calls != 0 {
				t.Errorf("provider calls = %d, want 0", gen.calls)
			}
		})
	}
}

func TestGenerateResume_MockBackfillsExperience(t *testing.T) {
	gen := mockGenerator()
	arts := &fakeArtifacts{}
	o := New(newFakeRecords(), gen, WithArtifactStore(arts))
	o.newID = func() string { return "artifact-1" }

	a, err := o.GenerateResume(context.Background(), model.GenerationRequest{UserID: "u1", JobID: jobID(1)})
	if err != nil {
		t.Fatalf("GenerateResume: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("provider calls = %d, want 1", gen.calls)
	}
	content, ok := a.Content.(sanitize.ResumeContent)
	if !ok {
		t.Fatalf("Content is %T, want sanitize.ResumeContent", a.Content)
	}
	var companies []string
	for _, e := range content.Sections.Experience {
		companies = append(companies, e.Company)
	}
	if diff := cmp.Diff([]string{"Babbage Ltd", "Early Co"}, companies); diff != "" {
		t.Errorf("experience not back-filled from employment (-want +got):\n%s", diff)
	}
	if content.Sections.Experience[0].EndDate != "Present" {
		t.Errorf("current position EndDate = %q, want Present", content.Sections.Experience[0].EndDate)
	}

	if a.ID != "artifact-1" || a.UserID != "u1" || a.Kind != model.KindResume {
		t.Errorf("artifact identity = %s/%s/%s", a.ID, a.UserID, a.Kind)
	}
	if !a.Metadata.Mock || a.Metadata.Provider != "mock" {
		t.Errorf("metadata = %+v, want mock provider", a.Metadata)
	}
	if a.PromptPreview == "" || len([]rune(a.PromptPreview)) > DefaultSettings().PreviewLength {
		t.Errorf("prompt preview length = %d", len([]rune(a.PromptPreview)))
	}
	if len(arts.saved) != 1 || arts.saved[0].ID != "artifact-1" {
		t.Errorf("saved = %+v, want the artifact persisted once", arts.saved)
	}
}

func TestGenerate_AllKindsInMockMode(t *testing.T) {
	for _, kind := range model.Kinds {
		t.Run(string(kind), func(t *testing.T) {
			gen := mockGenerator()
			o := New(newFakeRecords(), gen)
			a, err := o.Generate(context.Background(), model.GenerationRequest{Kind: kind, UserID: "u1", JobID: jobID(1)})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if a.Kind != kind || a.Title == "" || a.Content == nil {
				t.Errorf("artifact = %+v", a)
			}
			if a.Metadata.Repaired || a.Metadata.Fallback {
				t.Errorf("mock output should be valid as-is, metadata = %+v", a.Metadata)
			}
			if gen.calls != 1 {
				t.Errorf("provider calls = %d, want 1", gen.calls)
			}
		})
	}
}

func TestGenerate_SupplementaryFailureDegrades(t *testing.T) {
	rec := newFakeRecords()
	rec.listErr = errors.New("replica lagging")
	gen := mockGenerator()
	o := New(rec, gen)

	a, err := o.GenerateResume(context.Background(), model.GenerationRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("GenerateResume should degrade gracefully, got %v", err)
	}
	content := a.Content.(sanitize.ResumeContent)
	if len(content.Sections.Experience) != 0 {
		t.Errorf("Experience = %+v, want empty without employment records", content.Sections.Experience)
	}
	if content.Sections.Experience == nil {
		t.Error("sections must be empty slices, never nil")
	}
	if strings.Contains(gen.prompts[0], "Employment history") {
		t.Error("prompt should omit the unavailable employment section")
	}
}

func TestGenerate_PersistenceFailureIsNonBlocking(t *testing.T) {
	arts := &fakeArtifacts{err: errors.New("disk full")}
	o := New(newFakeRecords(), mockGenerator(), WithArtifactStore(arts))

	a, err := o.GenerateSkillsOptimization(context.Background(), model.GenerationRequest{UserID: "u1", JobID: jobID(1)})
	if err != nil {
		t.Fatalf("persistence failure must not fail generation: %v", err)
	}
	if a == nil || a.Kind != model.KindSkillsOptimization {
		t.Errorf("artifact = %+v", a)
	}
}

func TestGenerate_ModelAllowList(t *testing.T) {
	tests := []struct {
		requested string
		want      string
	}{
		{"", "gpt-4o-mini"},
		{"gpt-4o", "gpt-4o"},
		{"gpt-9-ultra", "gpt-4o-mini"},
	}
	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			gen := mockGenerator()
			o := New(newFakeRecords(), gen)
			a, err := o.GenerateSalaryResearch(context.Background(), model.GenerationRequest{
				UserID: "u1", JobID: jobID(1), Options: model.GenerationOptions{Model: tt.requested},
			})
			if err != nil {
				t.Fatal(err)
			}
			if got := gen.opts[0].Model; got != tt.want {
				t.Errorf("provider model = %q, want %q", got, tt.want)
			}
			if a.Model != tt.want {
				t.Errorf("artifact model = %q, want %q", a.Model, tt.want)
			}
		})
	}
}

func TestGenerate_ProviderOptions(t *testing.T) {
	gen := mockGenerator()
	s := DefaultSettings()
	s.Temperature = 0.3
	s.MaxTokens = 1234
	o := New(newFakeRecords(), gen, WithSettings(s))

	if _, err := o.GenerateCoverLetter(context.Background(), model.GenerationRequest{UserID: "u1", JobID: jobID(1)}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.GenerateSkillsOptimization(context.Background(), model.GenerationRequest{UserID: "u1", JobID: jobID(1)}); err != nil {
		t.Fatal(err)
	}
	if gen.opts[0].JSON {
		t.Error("cover letters are prose and must not request JSON mode")
	}
	if !gen.opts[1].JSON {
		t.Error("structured kinds should request JSON mode")
	}
	if gen.opts[1].Temperature != 0.3 || gen.opts[1].MaxTokens != 1234 {
		t.Errorf("options = %+v", gen.opts[1])
	}
}

func TestGenerate_InstructionsAreDelimitedAndSanitized(t *testing.T) {
	gen := mockGenerator()
	o := New(newFakeRecords(), gen)
	_, err := o.GenerateCoverLetter(context.Background(), model.GenerationRequest{
		UserID: "u1", JobID: jobID(1),
		Instructions: "Mention my open source work. api_key=sk-abcdefghijklmnopqrstuvwx",
	})
	if err != nil {
		t.Fatal(err)
	}
	p := gen.prompts[0]
	if !strings.Contains(p, "USER-SUPPLIED NOTES") || !strings.Contains(p, "Mention my open source work.") {
		t.Error("instructions should appear under the notes heading")
	}
	if strings.Contains(p, "sk-abcdefghijklmnopqrstuvwx") {
		t.Error("secret leaked into the prompt")
	}
}

func TestGenerate_PostingEnrichment(t *testing.T) {
	rec := newFakeRecords()
	rec.jobs[1].Description = "short"
	rec.jobs[1].URL = "https://jobs.example.com/1"

	t.Run("success", func(t *testing.T) {
		ext := &fakeExtractor{text: "We need Go and Kafka experience for our payments team."}
		gen := mockGenerator()
		o := New(rec, gen, WithExtractor(ext))
		a, err := o.GenerateCoverLetter(context.Background(), model.GenerationRequest{UserID: "u1", JobID: jobID(1)})
		if err != nil {
			t.Fatal(err)
		}
		if len(ext.urls) != 1 || ext.urls[0] != "https://jobs.example.com/1" {
			t.Errorf("extracted urls = %v", ext.urls)
		}
		if !strings.Contains(gen.prompts[0], "payments team") {
			t.Error("posting text should be included in the prompt")
		}
		if a.Metadata.Extras["posting_strategy"] != string(acquire.StrategyFullHeaders) {
			t.Errorf("extras = %v", a.Metadata.Extras)
		}
	})

	t.Run("failure continues", func(t *testing.T) {
		ext := &fakeExtractor{err: errors.New("blocked")}
		o := New(rec, mockGenerator(), WithExtractor(ext))
		if _, err := o.GenerateCoverLetter(context.Background(), model.GenerationRequest{UserID: "u1", JobID: jobID(1)}); err != nil {
			t.Fatalf("enrichment failure must not fail generation: %v", err)
		}
	})

	t.Run("long description skips fetch", func(t *testing.T) {
		long := newFakeRecords()
		long.jobs[1].URL = "https://jobs.example.com/1"
		long.jobs[1].Description = strings.Repeat("Responsibilities include on-call. ", 20)
		ext := &fakeExtractor{text: "unused"}
		o := New(long, mockGenerator(), WithExtractor(ext))
		if _, err := o.GenerateCoverLetter(context.Background(), model.GenerationRequest{UserID: "u1", JobID: jobID(1)}); err != nil {
			t.Fatal(err)
		}
		if len(ext.urls) != 0 {
			t.Errorf("fetched %v, want no fetch for a detailed description", ext.urls)
		}
	})
}

func TestInfo(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	err := &StepError{Step: StepGenerate, Err: &provider.Error{Variant: provider.VariantOpenAI, Transient: true, Attempts: 3, Err: errors.New("503")}}
	info := Info(err, now)
	if info.FailedStep != StepGenerate || !info.Retryable || info.FailedAt != "2026-05-01T00:00:00Z" {
		t.Errorf("Info = %+v", info)
	}
	if info := Info(errors.New("boom"), now); info.FailedStep != "request" || info.Retryable {
		t.Errorf("Info(plain) = %+v", info)
	}
}
