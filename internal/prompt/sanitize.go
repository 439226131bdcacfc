package prompt

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLength is the prompt budget in runes when none is configured.
const DefaultMaxLength = 16000

const (
	redacted        = "[REDACTED]"
	truncatedMarker = "\n... [truncated]"
)

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_\-]{10,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{16,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{30,}`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`xox[baprs]-[A-Za-z0-9\-]{10,}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
}

var credentialPattern = regexp.MustCompile(
	`(?i)\b(api[_-]?key|secret|token|password|passwd|pwd|access[_-]?key|auth)\s*[=:]\s*["']?[^\s"',;]+`)

// Sanitize strips control characters (keeping newlines and tabs), redacts
// secret-shaped substrings and truncates to limit runes. The result, marker
// included, never exceeds limit. A limit <= 0 means DefaultMaxLength.
func Sanitize(s string, limit int) string {
	if limit <= 0 {
		limit = DefaultMaxLength
	}

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == utf8.RuneError || unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	for _, re := range secretPatterns {
		s = re.ReplaceAllString(s, redacted)
	}
	s = credentialPattern.ReplaceAllString(s, "${1}="+redacted)

	return truncateBudget(s, limit)
}

// Preview returns at most n runes of s for audit metadata.
func Preview(s string, n int) string {
	return truncateBudget(strings.TrimSpace(s), n)
}

// truncateBudget cuts s so that the result including the marker fits in limit runes.
func truncateBudget(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	marker := utf8.RuneCountInString(truncatedMarker)
	if limit <= marker {
		return string([]rune(s)[:limit])
	}
	return string([]rune(s)[:limit-marker]) + truncatedMarker
}

// truncateRunes truncates s to maxRunes runes (Unicode-safe).
func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + truncatedMarker
}
