// Package validate checks untyped provider output against per-kind contracts
// and performs the single bounded repair round-trip.
package validate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/provider"
)

// Outcome is the result of a contract check. Errors are human-readable and
// reused verbatim in repair prompts.
type Outcome struct {
	OK     bool
	Value  any
	Errors []string
}

// Error is a terminal validation failure after the repair attempt.
type Error struct {
	Kind   model.Kind
	Errors []string
	// Err is set when the repair call itself failed.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s output failed validation: %s", e.Kind, strings.Join(e.Errors, "; "))
	if e.Err != nil {
		msg += fmt.Sprintf(" (repair failed: %v)", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{model.ErrValidation, e.Err}
	}
	return []error{model.ErrValidation}
}

// Parse returns the structured payload of res, falling back to parsing its
// text with markdown fences stripped. It returns nil when neither is usable.
func Parse(res *provider.Result) any {
	if res == nil {
		return nil
	}
	if res.Data != nil {
		return res.Data
	}
	return provider.ParseJSON(res.Text)
}

// Check validates v against the contract for kind.
func Check(kind model.Kind, v any) Outcome {
	if !kind.Structured() {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return Outcome{Errors: []string{"response must be non-empty text"}}
		}
		return Outcome{OK: true, Value: s}
	}

	rules, ok := contracts[kind]
	if !ok {
		return Outcome{Errors: []string{fmt.Sprintf("no contract for kind %q", kind)}}
	}
	root, ok := v.(map[string]any)
	if !ok {
		return Outcome{Errors: []string{"response must be a JSON object"}}
	}

	var errs []string
	broken := map[string]bool{}
	for _, f := range rules {
		if parent, _, nested := strings.Cut(f.Path, "."); nested && broken[parent] {
			continue
		}
		val, present := lookup(root, f.Path)
		if !present || val == nil {
			if f.Required {
				errs = append(errs, fmt.Sprintf("missing required field %q", f.Path))
				broken[f.Path] = true
			}
			continue
		}
		if got := typeOf(val); got != f.Type {
			errs = append(errs, fmt.Sprintf("field %q must be %s %s, got %s", f.Path, article(f.Type), f.Type, got))
			broken[f.Path] = true
			continue
		}
		if len(f.Enum) > 0 {
			s := strings.ToLower(strings.TrimSpace(val.(string)))
			if !slices.Contains(f.Enum, s) {
				errs = append(errs, fmt.Sprintf("field %q must be one of %s, got %q", f.Path, strings.Join(f.Enum, "|"), val))
			}
		}
	}
	if len(errs) > 0 {
		return Outcome{Errors: errs}
	}
	return Outcome{OK: true, Value: root}
}

func lookup(root map[string]any, path string) (any, bool) {
	var cur any = root
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func typeOf(v any) fieldType {
	switch v.(type) {
	case string:
		return typeString
	case float64, int, int64, float32:
		return typeNumber
	case []any:
		return typeArray
	case map[string]any:
		return typeObject
	case bool:
		return "boolean"
	default:
		return "null"
	}
}

func article(t fieldType) string {
	if t == typeArray || t == typeObject {
		return "an"
	}
	return "a"
}
