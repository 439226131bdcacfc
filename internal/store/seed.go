package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yangwenmai/careerpilot/internal/model"
)

// UserFixture is one owner's career records as loaded from a seed file.
type UserFixture struct {
	Profile        model.Profile         `yaml:"profile"`
	Jobs           []model.Job           `yaml:"jobs"`
	Skills         []model.Skill         `yaml:"skills"`
	Employment     []model.Employment    `yaml:"employment"`
	Education      []model.Education     `yaml:"education"`
	Projects       []model.Project       `yaml:"projects"`
	Certifications []model.Certification `yaml:"certifications"`
}

// Fixtures is the top-level seed document.
type Fixtures struct {
	Users []UserFixture `yaml:"users"`
}

// LoadFixtures decodes a YAML seed document.
func LoadFixtures(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	for i, u := range f.Users {
		if strings.TrimSpace(u.Profile.UserID) == "" {
			return nil, fmt.Errorf("user %d: profile.user_id is required: %w", i, model.ErrInvalidInput)
		}
	}
	return &f, nil
}

// ImportUser replaces the owner's records with the fixture's, in one
// transaction. Jobs are appended; a job with an explicit id keeps it.
func (s *Store) ImportUser(ctx context.Context, u UserFixture) error {
	userID := u.Profile.UserID
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("profile user_id: %w", model.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertProfile(ctx, tx, u.Profile); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	for _, table := range []string{"skills", "employment", "education", "projects", "certifications"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, j := range u.Jobs {
		j.UserID = userID
		if _, err := createJob(ctx, tx, j); err != nil {
			return fmt.Errorf("job %q: %w", j.Title, err)
		}
	}
	for _, sk := range u.Skills {
		if _, err := tx.ExecContext(ctx, `INSERT INTO skills (user_id, name, category, level, years) VALUES (?, ?, ?, ?, ?)`,
			userID, sk.Name, sk.Category, sk.Level, sk.Years); err != nil {
			return fmt.Errorf("skill %q: %w", sk.Name, err)
		}
	}
	for _, e := range u.Employment {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO employment (user_id, company, title, location, start_date, end_date, current, description, achievements)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userID, e.Company, e.Title, e.Location, e.StartDate, e.EndDate, e.Current, e.Description, jsonList(e.Achievements)); err != nil {
			return fmt.Errorf("employment %q: %w", e.Company, err)
		}
	}
	for _, e := range u.Education {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO education (user_id, institution, degree, field, start_date, end_date, gpa)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, e.Institution, e.Degree, e.Field, e.StartDate, e.EndDate, e.GPA); err != nil {
			return fmt.Errorf("education %q: %w", e.Institution, err)
		}
	}
	for _, p := range u.Projects {
		if _, err := tx.ExecContext(ctx, `INSERT INTO projects (user_id, name, description, url, technologies) VALUES (?, ?, ?, ?, ?)`,
			userID, p.Name, p.Description, p.URL, jsonList(p.Technologies)); err != nil {
			return fmt.Errorf("project %q: %w", p.Name, err)
		}
	}
	for _, c := range u.Certifications {
		if _, err := tx.ExecContext(ctx, `INSERT INTO certifications (user_id, name, issuer, issued_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
			userID, c.Name, c.Issuer, c.IssuedAt, c.ExpiresAt); err != nil {
			return fmt.Errorf("certification %q: %w", c.Name, err)
		}
	}

	return tx.Commit()
}
