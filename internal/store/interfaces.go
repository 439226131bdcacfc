package store

import (
	"context"
	"time"

	"github.com/yangwenmai/careerpilot/internal/model"
)

// ContextReader provides read access to an owner's career records.
type ContextReader interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	GetJob(ctx context.Context, id int64) (*model.Job, error)
	ListSkills(ctx context.Context, userID string) ([]model.Skill, error)
	ListEmployment(ctx context.Context, userID string) ([]model.Employment, error)
	ListEducation(ctx context.Context, userID string) ([]model.Education, error)
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)
	ListCertifications(ctx context.Context, userID string) ([]model.Certification, error)
}

// RecordWriter imports career records.
type RecordWriter interface {
	UpsertProfile(ctx context.Context, p model.Profile) error
	CreateJob(ctx context.Context, j model.Job) (int64, error)
	ImportUser(ctx context.Context, u UserFixture) error
}

// CompanyStore persists company research. Durable facts and volatile
// research are written through separate calls.
type CompanyStore interface {
	GetCompany(ctx context.Context, name string) (*model.Company, error)
	GetCompanyResearch(ctx context.Context, name string) (*model.CompanyResearch, error)
	UpsertCompany(ctx context.Context, c model.Company) error
	SaveCompanyResearch(ctx context.Context, r model.CompanyResearch) error
}

// ResearchPurger removes expired volatile research.
type ResearchPurger interface {
	PurgeExpiredResearch(ctx context.Context, now time.Time) (int64, error)
}

// ArtifactFilter narrows ListArtifacts. UserID is required.
type ArtifactFilter struct {
	UserID string
	Kind   model.Kind
	JobID  *int64
	Limit  int
}

// ArtifactStore provides access to artifact persistence.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, a model.Artifact) error
	GetArtifact(ctx context.Context, userID, id string) (*model.Artifact, error)
	ListArtifacts(ctx context.Context, f ArtifactFilter) ([]model.Artifact, error)
}
