// Package sanitize coerces validated provider output into safe, persistable
// shapes: clamped numbers, canonical enums and bounded lists.
package sanitize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yangwenmai/careerpilot/internal/model"
)

// Default list bounds.
const (
	MaxItems   = 20
	MaxItemLen = 500
)

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Probability normalizes a model-reported probability into [0,1]. Values in
// [2,100] are taken as percentages; anything else above 1 clamps to 1.
func Probability(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v >= 2 && v <= 100 {
		v /= 100
	}
	return Clamp(v, 0, 1)
}

var sizeAliases = map[string]string{
	"start-up":       model.SizeStartup,
	"early stage":    model.SizeStartup,
	"early-stage":    model.SizeStartup,
	"seed":           model.SizeStartup,
	"tiny":           model.SizeStartup,
	"smb":            model.SizeSmall,
	"small business": model.SizeSmall,
	"small-sized":    model.SizeSmall,
	"mid":            model.SizeMedium,
	"mid-size":       model.SizeMedium,
	"midsize":        model.SizeMedium,
	"mid-sized":      model.SizeMedium,
	"mid-market":     model.SizeMedium,
	"medium-sized":   model.SizeMedium,
	"big":            model.SizeLarge,
	"enterprise":     model.SizeLarge,
	"corporation":    model.SizeLarge,
	"large-sized":    model.SizeLarge,
	"multinational":  model.SizeLarge,
}

var sizeNumber = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([kK]\b)?`)

// CompanySize maps a free-text organization size onto the canonical bucket
// set. It tries an exact match, then known aliases, then infers from the
// lower bound of the first number found. Unmappable input yields nil.
func CompanySize(s string) *string {
	norm := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if norm == "" {
		return nil
	}
	switch norm {
	case model.SizeStartup, model.SizeSmall, model.SizeMedium, model.SizeLarge:
		return &norm
	}
	if b, ok := sizeAliases[norm]; ok {
		return &b
	}

	m := sizeNumber.FindStringSubmatch(norm)
	if m == nil {
		return nil
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	if m[2] != "" {
		n *= 1000
	}

	var b string
	switch {
	case n < 51:
		b = model.SizeStartup
	case n < 201:
		b = model.SizeSmall
	case n < 1000:
		b = model.SizeMedium
	default:
		b = model.SizeLarge
	}
	return &b
}

// Strings keeps the primitive entries of a JSON array as trimmed strings,
// at most maxItems of them, each capped at maxLen runes. Non-arrays yield an
// empty slice.
func Strings(v any, maxItems, maxLen int) []string {
	arr, _ := v.([]any)
	out := make([]string, 0, min(len(arr), maxItems))
	for _, item := range arr {
		if len(out) >= maxItems {
			break
		}
		var s string
		switch x := item.(type) {
		case string:
			s = x
		case float64:
			s = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(x)
		default:
			continue
		}
		if s = text(s, maxLen); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// text trims s and caps it at maxLen runes.
func text(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxLen {
		s = strings.TrimSpace(string([]rune(s)[:maxLen]))
	}
	return s
}

func str(m map[string]any, key string, maxLen int) string {
	switch v := m[key].(type) {
	case string:
		return text(v, maxLen)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func num(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, !math.IsNaN(v)
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func list(m map[string]any, key string) []string {
	return Strings(m[key], MaxItems, MaxItemLen)
}

func objects(v any) []map[string]any {
	arr, _ := v.([]any)
	var out []map[string]any
	for _, item := range arr {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// enum lowercases s and returns it if allowed, else def.
func enum(s string, allowed []string, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return def
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func yearOf(m map[string]any, key string) *int {
	f, ok := num(m, key)
	if !ok || f < 1600 || f > 2200 {
		return nil
	}
	y := int(f)
	return &y
}
