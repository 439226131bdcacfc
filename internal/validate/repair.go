package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/provider"
)

const responsePreviewLength = 1500

// Report describes how a valid value was obtained.
type Report struct {
	Value    any
	Repaired bool
	// Tokens used by the repair call, if one was made.
	Tokens int
}

// Repairer validates provider output and, on failure, issues exactly one
// repair call at temperature 0.
type Repairer struct {
	Gen provider.Generator
}

// NewRepairer creates a Repairer that sends repair prompts to gen.
func NewRepairer(gen provider.Generator) *Repairer {
	return &Repairer{Gen: gen}
}

// Ensure returns a contract-valid value for kind from res. The caller's
// opts are reused for the repair call with temperature forced to zero.
// At most one provider call is made.
func (r *Repairer) Ensure(ctx context.Context, kind model.Kind, res *provider.Result, opts provider.Options) (*Report, error) {
	first := Check(kind, valueOf(kind, res))
	if first.OK {
		return &Report{Value: first.Value}, nil
	}
	if !kind.Structured() {
		return nil, &Error{Kind: kind, Errors: first.Errors}
	}

	slog.Warn("provider output failed validation, attempting repair",
		"kind", kind, "errors", strings.Join(first.Errors, "; "))

	repairOpts := opts
	repairOpts.Temperature = 0
	repairOpts.JSON = true

	fixed, err := r.Gen.Generate(ctx, kind, RepairPrompt(kind, first.Errors, res), repairOpts)
	if err != nil {
		return nil, &Error{Kind: kind, Errors: first.Errors, Err: err}
	}

	second := Check(kind, valueOf(kind, fixed))
	if !second.OK {
		return nil, &Error{Kind: kind, Errors: second.Errors}
	}
	return &Report{Value: second.Value, Repaired: true, Tokens: fixed.Tokens}, nil
}

// valueOf picks what Check should see: text for prose kinds, parsed JSON otherwise.
func valueOf(kind model.Kind, res *provider.Result) any {
	if !kind.Structured() {
		if res == nil {
			return nil
		}
		return res.Text
	}
	return Parse(res)
}

// RepairPrompt builds the error-informed follow-up prompt.
func RepairPrompt(kind model.Kind, errs []string, prev *provider.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your previous %s response did not match the required JSON structure.\n\n", strings.ReplaceAll(string(kind), "_", " "))
	b.WriteString("Validation errors:\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	fmt.Fprintf(&b, "\nPrevious response (truncated):\n%s\n", previewResult(prev))
	fmt.Fprintf(&b, "\nExpected structure:\n%s\n", Shape(kind))
	b.WriteString("\nReturn ONLY the corrected JSON object. No markdown, no explanation, no extra keys outside the structure.")
	return b.String()
}

func previewResult(res *provider.Result) string {
	if res == nil {
		return "(empty)"
	}
	text := res.Text
	if text == "" && res.Data != nil {
		if b, err := json.Marshal(res.Data); err == nil {
			text = string(b)
		}
	}
	if strings.TrimSpace(text) == "" {
		return "(empty)"
	}
	runes := []rune(text)
	if len(runes) > responsePreviewLength {
		return string(runes[:responsePreviewLength]) + "..."
	}
	return text
}
