package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yangwenmai/careerpilot/internal/model"
)

// MockClient returns fixed, kind-keyed sample payloads without any network I/O.
// Results are flagged Meta.Mock so nothing fabricated is persisted silently.
type MockClient struct{}

var _ Generator = (*MockClient)(nil)

// The resume sample deliberately has no experience section; the sanitizer
// fills it from employment records.
var mockPayloads = map[model.Kind]string{
	model.KindResume: `{
  "title": "Professional Resume",
  "sections": {
    "summary": "Backend engineer with a track record of shipping reliable distributed systems and mentoring teams.",
    "skills": ["Go", "PostgreSQL", "Kubernetes", "gRPC", "Observability"],
    "education": [],
    "projects": [],
    "certifications": []
  }
}`,
	model.KindSkillsOptimization: `{
  "match_score": 0.72,
  "matched_skills": ["Go", "PostgreSQL", "REST APIs"],
  "missing_skills": ["Terraform", "Kafka"],
  "recommendations": [
    "Lead with the distributed systems work that mirrors the posting's scale requirements.",
    "Add a short Terraform project to close the infrastructure-as-code gap."
  ],
  "keywords": ["microservices", "on-call", "latency"]
}`,
	model.KindCompanyResearch: `{
  "industry": "Software",
  "size": "1,000+ employees",
  "location": "San Francisco, CA",
  "founded_year": 2012,
  "mission": "Make infrastructure boring so product teams can move fast.",
  "culture": "Writing-first, remote-friendly, high ownership.",
  "leadership": ["Jordan Lee (CEO)", "Sam Patel (CTO)"],
  "products": ["Deploy Platform", "Edge Cache"],
  "news": [
    {"title": "Company announces Series D", "summary": "Raised funding to expand internationally.", "date": "2026-05-02"}
  ],
  "recent_events": ["Opened a Berlin office"]
}`,
	model.KindSalaryResearch: `{
  "currency": "USD",
  "min": 145000,
  "median": 172000,
  "max": 205000,
  "confidence": "medium",
  "factors": ["Senior level scope", "Metro cost of labor", "Equity-heavy compensation mix"],
  "sources": ["Public salary bands", "Comparable postings"]
}`,
	model.KindPrediction: `{
  "probability": 0.62,
  "confidence": "medium",
  "outcome": "interview",
  "strengths": ["Direct experience with the core stack", "Relevant domain background"],
  "risks": ["No listed Kafka experience"],
  "timeline_weeks": 3,
  "recommendations": ["Reach out to the hiring manager with a short project summary."]
}`,
}

const mockCoverLetter = `Dear Hiring Manager,

I am excited to apply for this role. Over the past several years I have built and operated backend systems that serve millions of requests a day, and I enjoy turning ambiguous requirements into dependable software.

In my most recent position I led the migration of a monolith into independently deployable services, cutting release lead time from weeks to hours while keeping error budgets intact.

I would welcome the chance to bring the same focus on reliability and collaboration to your team.

Sincerely,
The Candidate`

// Generate returns the sample payload for kind.
func (m *MockClient) Generate(_ context.Context, kind model.Kind, prompt string, opts Options) (*Result, error) {
	start := time.Now()
	modelName := opts.Model
	if modelName == "" {
		modelName = "mock-model"
	}

	var text string
	var data any
	if kind == model.KindCoverLetter {
		text = mockCoverLetter
	} else {
		raw, ok := mockPayloads[kind]
		if !ok {
			return nil, &Error{Variant: VariantMock, Err: fmt.Errorf("no mock payload for kind %q", kind)}
		}
		text = raw
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, &Error{Variant: VariantMock, Err: fmt.Errorf("decode mock payload: %w", err)}
		}
	}

	rawBody, _ := json.Marshal(map[string]any{"mock": true, "kind": kind})
	return &Result{
		Text:   text,
		Data:   data,
		Raw:    rawBody,
		Tokens: approxTokens(prompt) + approxTokens(text),
		Meta: Meta{
			Provider: string(VariantMock),
			Model:    modelName,
			Mock:     true,
			Attempts: 1,
			Elapsed:  time.Since(start),
		},
	}, nil
}
