package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yangwenmai/careerpilot/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ ContextReader  = (*Store)(nil)
	_ RecordWriter   = (*Store)(nil)
	_ CompanyStore   = (*Store)(nil)
	_ ResearchPurger = (*Store)(nil)
	_ ArtifactStore  = (*Store)(nil)
)

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 2

func (s *Store) migrate() error {
	// Ensure the schema_version table exists.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh database: initialize to version 0.
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: career records
		s.migrateV2, // v1 → v2: company research and artifacts
	}
	if len(migrations) != currentSchemaVersion {
		return fmt.Errorf("have %d migrations, schema version is %d", len(migrations), currentSchemaVersion)
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the career record tables (v0 → v1).
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id    TEXT PRIMARY KEY,
		full_name  TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		location   TEXT NOT NULL DEFAULT '',
		headline   TEXT NOT NULL DEFAULT '',
		summary    TEXT NOT NULL DEFAULT '',
		linkedin   TEXT NOT NULL DEFAULT '',
		website    TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     TEXT NOT NULL,
		title       TEXT NOT NULL,
		company     TEXT NOT NULL,
		location    TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		url         TEXT NOT NULL DEFAULT '',
		salary_min  INTEGER,
		salary_max  INTEGER,
		status      TEXT NOT NULL DEFAULT 'saved',
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_user ON jobs(user_id);

	CREATE TABLE IF NOT EXISTS skills (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id  TEXT NOT NULL,
		name     TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		level    TEXT NOT NULL DEFAULT '',
		years    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_skills_user ON skills(user_id);

	CREATE TABLE IF NOT EXISTS employment (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id      TEXT NOT NULL,
		company      TEXT NOT NULL,
		title        TEXT NOT NULL,
		location     TEXT NOT NULL DEFAULT '',
		start_date   TEXT NOT NULL DEFAULT '',
		end_date     TEXT NOT NULL DEFAULT '',
		current      INTEGER NOT NULL DEFAULT 0,
		description  TEXT NOT NULL DEFAULT '',
		achievements TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_employment_user ON employment(user_id);

	CREATE TABLE IF NOT EXISTS education (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     TEXT NOT NULL,
		institution TEXT NOT NULL,
		degree      TEXT NOT NULL DEFAULT '',
		field       TEXT NOT NULL DEFAULT '',
		start_date  TEXT NOT NULL DEFAULT '',
		end_date    TEXT NOT NULL DEFAULT '',
		gpa         TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_education_user ON education(user_id);

	CREATE TABLE IF NOT EXISTS projects (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id      TEXT NOT NULL,
		name         TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		url          TEXT NOT NULL DEFAULT '',
		technologies TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id);

	CREATE TABLE IF NOT EXISTS certifications (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT NOT NULL,
		name       TEXT NOT NULL,
		issuer     TEXT NOT NULL DEFAULT '',
		issued_at  TEXT NOT NULL DEFAULT '',
		expires_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_certifications_user ON certifications(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds company research and artifacts (v1 → v2).
func (s *Store) migrateV2() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		name_key     TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		industry     TEXT NOT NULL DEFAULT '',
		size_bucket  TEXT CHECK (size_bucket IN ('startup', 'small', 'medium', 'large')),
		location     TEXT NOT NULL DEFAULT '',
		founded_year INTEGER,
		mission      TEXT NOT NULL DEFAULT '',
		culture      TEXT NOT NULL DEFAULT '',
		leadership   TEXT NOT NULL DEFAULT '[]',
		products     TEXT NOT NULL DEFAULT '[]',
		updated_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS company_research (
		name_key      TEXT PRIMARY KEY,
		company_name  TEXT NOT NULL,
		news          TEXT NOT NULL DEFAULT '[]',
		recent_events TEXT NOT NULL DEFAULT '[]',
		fetched_at    TEXT NOT NULL,
		expires_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_company_research_expiry ON company_research(expires_at);

	CREATE TABLE IF NOT EXISTS artifacts (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL,
		job_id         INTEGER,
		kind           TEXT NOT NULL,
		title          TEXT NOT NULL,
		model          TEXT NOT NULL DEFAULT '',
		prompt_preview TEXT NOT NULL DEFAULT '',
		content        TEXT NOT NULL,
		metadata       TEXT NOT NULL,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artifacts_owner ON artifacts(user_id, kind, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Career records
// ---------------------------------------------------------------------------

// GetProfile returns the owner's profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, full_name, email, phone, location, headline, summary, linkedin, website
		FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.FullName, &p.Email, &p.Phone, &p.Location, &p.Headline, &p.Summary, &p.LinkedIn, &p.Website)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %q: %w", userID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile inserts or replaces the owner's profile.
func (s *Store) UpsertProfile(ctx context.Context, p model.Profile) error {
	return upsertProfile(ctx, s.db, p)
}

func upsertProfile(ctx context.Context, db execer, p model.Profile) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, full_name, email, phone, location, headline, summary, linkedin, website, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			phone = excluded.phone,
			location = excluded.location,
			headline = excluded.headline,
			summary = excluded.summary,
			linkedin = excluded.linkedin,
			website = excluded.website,
			updated_at = excluded.updated_at`,
		p.UserID, p.FullName, p.Email, p.Phone, p.Location, p.Headline, p.Summary, p.LinkedIn, p.Website, now,
	)
	return err
}

// GetJob returns a job by id. Ownership is checked by the caller.
func (s *Store) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	var j model.Job
	var salaryMin, salaryMax sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, company, location, description, url, salary_min, salary_max, status
		FROM jobs WHERE id = ?`, id,
	).Scan(&j.ID, &j.UserID, &j.Title, &j.Company, &j.Location, &j.Description, &j.URL, &salaryMin, &salaryMax, &j.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	j.SalaryMin = nullInt(salaryMin)
	j.SalaryMax = nullInt(salaryMax)
	return &j, nil
}

// CreateJob inserts a job and returns its id. A non-zero j.ID is kept.
func (s *Store) CreateJob(ctx context.Context, j model.Job) (int64, error) {
	return createJob(ctx, s.db, j)
}

func createJob(ctx context.Context, db execer, j model.Job) (int64, error) {
	status := j.Status
	if status == "" {
		status = "saved"
	}
	var id any
	if j.ID > 0 {
		id = j.ID
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO jobs (id, user_id, title, company, location, description, url, salary_min, salary_max, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, j.UserID, j.Title, j.Company, j.Location, j.Description, j.URL, j.SalaryMin, j.SalaryMax, status,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSkills returns the owner's skills in insertion order.
func (s *Store) ListSkills(ctx context.Context, userID string) ([]model.Skill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, category, level, years FROM skills WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Skill
	for rows.Next() {
		var sk model.Skill
		if err := rows.Scan(&sk.Name, &sk.Category, &sk.Level, &sk.Years); err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

// ListEmployment returns the owner's positions, current and most recent first.
func (s *Store) ListEmployment(ctx context.Context, userID string) ([]model.Employment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT company, title, location, start_date, end_date, current, description, achievements
		FROM employment WHERE user_id = ? ORDER BY current DESC, start_date DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Employment
	for rows.Next() {
		var e model.Employment
		var achievements string
		if err := rows.Scan(&e.Company, &e.Title, &e.Location, &e.StartDate, &e.EndDate, &e.Current, &e.Description, &achievements); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(achievements), &e.Achievements); err != nil {
			return nil, fmt.Errorf("decode achievements: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEducation returns the owner's education, most recent first.
func (s *Store) ListEducation(ctx context.Context, userID string) ([]model.Education, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT institution, degree, field, start_date, end_date, gpa
		FROM education WHERE user_id = ? ORDER BY end_date DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Education
	for rows.Next() {
		var e model.Education
		if err := rows.Scan(&e.Institution, &e.Degree, &e.Field, &e.StartDate, &e.EndDate, &e.GPA); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListProjects returns the owner's projects.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, description, url, technologies FROM projects WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Project
	for rows.Next() {
		var p model.Project
		var tech string
		if err := rows.Scan(&p.Name, &p.Description, &p.URL, &tech); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tech), &p.Technologies); err != nil {
			return nil, fmt.Errorf("decode technologies: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListCertifications returns the owner's certifications.
func (s *Store) ListCertifications(ctx context.Context, userID string) ([]model.Certification, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, issuer, issued_at, expires_at FROM certifications WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Certification
	for rows.Next() {
		var c model.Certification
		if err := rows.Scan(&c.Name, &c.Issuer, &c.IssuedAt, &c.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// jsonList encodes a slice as a JSON array, never "null".
func jsonList[T any](v []T) string {
	if v == nil {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
