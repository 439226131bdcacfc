package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yangwenmai/careerpilot/internal/model"
)

const (
	defaultArtifactLimit = 50
	maxArtifactLimit     = 200
)

// SaveArtifact persists an assembled artifact. Artifacts are immutable, so
// saving an existing id is an error.
func (s *Store) SaveArtifact(ctx context.Context, a model.Artifact) error {
	if a.ID == "" || a.UserID == "" || !a.Kind.Valid() {
		return fmt.Errorf("artifact id, owner and kind are required: %w", model.ErrInvalidInput)
	}
	content, err := json.Marshal(a.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, user_id, job_id, kind, title, model, prompt_preview, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.JobID, string(a.Kind), a.Title, a.Model, a.PromptPreview, string(content), string(meta), a.CreatedAt,
	)
	return err
}

// GetArtifact returns one artifact owned by userID. An artifact owned by
// someone else is reported as not found.
func (s *Store) GetArtifact(ctx context.Context, userID, id string) (*model.Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, job_id, kind, title, model, prompt_preview, content, metadata, created_at
		FROM artifacts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact %q: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListArtifacts returns the owner's artifacts, newest first.
func (s *Store) ListArtifacts(ctx context.Context, f ArtifactFilter) ([]model.Artifact, error) {
	if f.UserID == "" {
		return nil, fmt.Errorf("artifact owner: %w", model.ErrInvalidInput)
	}
	where := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.JobID != nil {
		where = append(where, "job_id = ?")
		args = append(args, *f.JobID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultArtifactLimit
	}
	limit = min(limit, maxArtifactLimit)
	args = append(args, limit)

	query := `SELECT id, user_id, job_id, kind, title, model, prompt_preview, content, metadata, created_at
		FROM artifacts WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanArtifact(sc scanner) (*model.Artifact, error) {
	var a model.Artifact
	var jobID sql.NullInt64
	var kind, content, meta string
	if err := sc.Scan(&a.ID, &a.UserID, &jobID, &kind, &a.Title, &a.Model, &a.PromptPreview, &content, &meta, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Kind = model.Kind(kind)
	if jobID.Valid {
		a.JobID = &jobID.Int64
	}
	a.Content = json.RawMessage(content)
	if err := json.Unmarshal([]byte(meta), &a.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &a, nil
}
