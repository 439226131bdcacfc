package model

import (
	"encoding/json"
	"errors"
)

// Error taxonomy shared by every component. Typed errors elsewhere wrap one of these.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden: ownership mismatch")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrProviderTransient = errors.New("provider unavailable")
	ErrProviderPermanent = errors.New("provider rejected request")
	ErrValidation        = errors.New("invalid provider output")
	ErrAcquisition       = errors.New("content acquisition failed")
)

// Retryable reports whether the caller may reasonably resubmit the request.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderTransient) ||
		errors.Is(err, ErrAcquisition) ||
		errors.Is(err, ErrValidation)
}

// ErrorInfo holds structured failure information returned to callers.
type ErrorInfo struct {
	FailedStep string `json:"failed_step"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	FailedAt   string `json:"failed_at"`
}

// ToJSON serializes ErrorInfo to a JSON string.
func (e ErrorInfo) ToJSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}
