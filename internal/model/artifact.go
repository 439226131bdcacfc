package model

import "time"

// Provider names recorded in artifact metadata when no model call was made.
const (
	ProviderCache     = "cache"
	ProviderHeuristic = "heuristic"
)

// Artifact is a sanitized generation result attributed to one owner and one kind.
// It is never mutated after assembly.
type Artifact struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	JobID         *int64           `json:"job_id,omitempty"`
	Kind          Kind             `json:"kind"`
	Title         string           `json:"title"`
	PromptPreview string           `json:"prompt_preview"`
	Model         string           `json:"model"`
	Content       any              `json:"content"`
	Metadata      ArtifactMetadata `json:"metadata"`
	CreatedAt     string           `json:"created_at"`
}

// ArtifactMetadata records provenance for an artifact.
type ArtifactMetadata struct {
	GeneratedAt   string         `json:"generated_at"`
	Provider      string         `json:"provider"`
	Mock          bool           `json:"mock,omitempty"`
	Tokens        int            `json:"tokens"`
	PromptPreview string         `json:"prompt_preview"`
	Repaired      bool           `json:"repaired,omitempty"`
	Fallback      bool           `json:"fallback,omitempty"`
	Extras        map[string]any `json:"extras,omitempty"`
}

// NewArtifact creates an artifact stamped with the current time.
func NewArtifact(id, userID string, jobID *int64, kind Kind, title, modelName string, content any, meta ArtifactMetadata) Artifact {
	now := time.Now().UTC().Format(time.RFC3339)
	if meta.GeneratedAt == "" {
		meta.GeneratedAt = now
	}
	return Artifact{
		ID:            id,
		UserID:        userID,
		JobID:         jobID,
		Kind:          kind,
		Title:         title,
		PromptPreview: meta.PromptPreview,
		Model:         modelName,
		Content:       content,
		Metadata:      meta,
		CreatedAt:     now,
	}
}
