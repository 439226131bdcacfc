package engine

import (
	"context"

	"github.com/yangwenmai/careerpilot/internal/acquire"
	"github.com/yangwenmai/careerpilot/internal/model"
)

// ContextSource reads the owner's career records. store.Store implements it.
type ContextSource interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	GetJob(ctx context.Context, id int64) (*model.Job, error)
	ListSkills(ctx context.Context, userID string) ([]model.Skill, error)
	ListEmployment(ctx context.Context, userID string) ([]model.Employment, error)
	ListEducation(ctx context.Context, userID string) ([]model.Education, error)
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
	ListCertifications(ctx context.Context, userID string) ([]model.Certification, error)
}

// CompanyStore persists shared company research.
type CompanyStore interface {
	GetCompany(ctx context.Context, name string) (*model.Company, error)
	GetCompanyResearch(ctx context.Context, name string) (*model.CompanyResearch, error)
	UpsertCompany(ctx context.Context, c model.Company) error
	SaveCompanyResearch(ctx context.Context, r model.CompanyResearch) error
}

// ArtifactSaver persists assembled artifacts.
type ArtifactSaver interface {
	SaveArtifact(ctx context.Context, a model.Artifact) error
}

// ContentExtractor fetches live web content. acquire.Engine implements it.
type ContentExtractor interface {
	Extract(ctx context.Context, url string, opts acquire.Options) (*acquire.Result, error)
}
