package model

// GenerationOptions are optional knobs a caller may set on a request.
type GenerationOptions struct {
	Tone   string `json:"tone,omitempty"`
	Length string `json:"length,omitempty"`
	Model  string `json:"model,omitempty"`
}

// GenerationRequest asks the pipeline for one artifact.
type GenerationRequest struct {
	Kind         Kind              `json:"kind"`
	UserID       string            `json:"user_id"`
	JobID        *int64            `json:"job_id,omitempty"`
	CompanyName  string            `json:"company_name,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Options      GenerationOptions `json:"options,omitempty"`
}
