// Package provider talks to generative-AI backends. A Client picks exactly one
// variant per call: the deterministic mock, the primary OpenAI-compatible
// remote, or the reserved secondary backend.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yangwenmai/careerpilot/internal/model"
)

// Variant identifies a provider implementation.
type Variant string

// Provider variants. The set is closed; unknown names are rejected by ParseVariant.
const (
	VariantMock      Variant = "mock"
	VariantOpenAI    Variant = "openai"
	VariantAnthropic Variant = "anthropic"
)

// ParseVariant maps a configuration string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantMock, VariantOpenAI, VariantAnthropic:
		return v, nil
	case "":
		return VariantOpenAI, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// ErrVariantNotImplemented is returned by the reserved secondary backend.
var ErrVariantNotImplemented = errors.New("provider variant not implemented")

// Generator produces content for one prompt.
type Generator interface {
	Generate(ctx context.Context, kind model.Kind, prompt string, opts Options) (*Result, error)
}

// Options are the per-call generation knobs.
type Options struct {
	// Variant forces a specific provider. Empty means the client default.
	Variant     Variant
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds each attempt, not the whole call.
	Timeout    time.Duration
	MaxRetries int
	// JSON asks for a JSON-object response where the backend supports it.
	JSON bool
}

// Result is the output of a successful Generate call.
type Result struct {
	Text string
	// Data is the decoded JSON payload when the text parsed as JSON.
	Data any
	// Raw is the provider response body, kept for diagnostics only.
	Raw    json.RawMessage
	Tokens int
	Meta   Meta
}

// Meta describes how a result was obtained.
type Meta struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Mock     bool          `json:"mock,omitempty"`
	Attempts int           `json:"attempts"`
	Retries  int           `json:"retries"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Error is a failed provider call. It unwraps to model.ErrProviderTransient or
// model.ErrProviderPermanent as well as the underlying cause.
type Error struct {
	Variant    Variant
	StatusCode int
	Attempts   int
	Transient  bool
	Err        error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Attempts > 1 {
		return fmt.Sprintf("%s: %s failure after %d attempts: %v", e.Variant, kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Variant, kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Transient {
		return []error{model.ErrProviderTransient, e.Err}
	}
	return []error{model.ErrProviderPermanent, e.Err}
}

// PromptError rejects a prompt before any network call.
type PromptError struct {
	Reason string
	Length int
}

func (e *PromptError) Error() string {
	return fmt.Sprintf("prompt %s (length %d)", e.Reason, e.Length)
}

func (e *PromptError) Unwrap() error { return model.ErrInvalidInput }

// Limits bound the accepted prompt length in runes.
type Limits struct {
	MinLength int
	MaxLength int
}

// Client selects a variant once per call and delegates to it.
type Client struct {
	defaultVariant Variant
	mockMode       bool
	limits         Limits
	mock           Generator
	remote         Generator
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMockMode forces the mock variant for every call (test mode).
func WithMockMode(on bool) ClientOption {
	return func(c *Client) { c.mockMode = on }
}

// WithRemote sets the primary remote generator.
func WithRemote(g Generator) ClientOption {
	return func(c *Client) { c.remote = g }
}

// WithLimits overrides the prompt length limits.
func WithLimits(l Limits) ClientOption {
	return func(c *Client) { c.limits = l }
}

// NewClient creates a Client whose default variant is def.
func NewClient(def Variant, opts ...ClientOption) *Client {
	c := &Client{
		defaultVariant: def,
		limits:         Limits{MinLength: 20, MaxLength: 32000},
		mock:           &MockClient{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate validates the prompt and runs it on the selected variant.
func (c *Client) Generate(ctx context.Context, kind model.Kind, prompt string, opts Options) (*Result, error) {
	if err := c.checkPrompt(prompt); err != nil {
		return nil, err
	}

	switch v := c.Select(opts); v {
	case VariantMock:
		return c.mock.Generate(ctx, kind, prompt, opts)
	case VariantOpenAI:
		if c.remote == nil {
			return nil, &Error{Variant: v, Err: errors.New("remote client not configured")}
		}
		return c.remote.Generate(ctx, kind, prompt, opts)
	default:
		return nil, &Error{Variant: v, Err: ErrVariantNotImplemented}
	}
}

// Select returns the variant a call with opts would use.
func (c *Client) Select(opts Options) Variant {
	if c.mockMode {
		return VariantMock
	}
	if opts.Variant != "" {
		return opts.Variant
	}
	return c.defaultVariant
}

func (c *Client) checkPrompt(prompt string) error {
	n := utf8.RuneCountInString(prompt)
	switch {
	case strings.TrimSpace(prompt) == "":
		return &PromptError{Reason: "is missing", Length: n}
	case n < c.limits.MinLength:
		return &PromptError{Reason: fmt.Sprintf("is shorter than %d characters", c.limits.MinLength), Length: n}
	case c.limits.MaxLength > 0 && n > c.limits.MaxLength:
		return &PromptError{Reason: fmt.Sprintf("exceeds %d characters", c.limits.MaxLength), Length: n}
	}
	return nil
}

// ParseJSON decodes text as JSON, first as-is and then with markdown code
// fences removed. It returns nil when neither parses.
func ParseJSON(text string) any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v
	}
	stripped := StripFences(text)
	if stripped == text {
		return nil
	}
	if err := json.Unmarshal([]byte(stripped), &v); err == nil {
		return v
	}
	return nil
}

// StripFences removes a surrounding ```json ... ``` block if present.
func StripFences(text string) string {
	t := strings.TrimSpace(text)
	start := strings.Index(t, "```")
	if start < 0 {
		return t
	}
	body := t[start+3:]
	// Drop the language tag on the opening fence line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if tag == "" || !strings.ContainsAny(tag, "{[") {
			body = body[nl+1:]
		}
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// approxTokens estimates token usage when a backend does not report it.
func approxTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}
