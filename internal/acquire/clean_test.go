package acquire

import (
	"strings"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	got := normalizeText("  a   b \t c \r\n\n\n\n  d  ")
	if got != "a b c\n\nd" {
		t.Errorf("normalizeText = %q", got)
	}
}

func TestWalkHTML_SkipsScriptsAndStyles(t *testing.T) {
	body := []byte(`<html><head><title> Careers </title><style>p{}</style></head>
<body><script>alert(1)</script><noscript>enable js</noscript><h2>Role</h2><p>Build things</p></body></html>`)
	text, title := walkHTML(body)
	if title != "Careers" {
		t.Errorf("title = %q", title)
	}
	for _, bad := range []string{"alert", "p{}", "enable js"} {
		if strings.Contains(text, bad) {
			t.Errorf("text contains %q: %q", bad, text)
		}
	}
	if !strings.Contains(text, "Role\nBuild things") {
		t.Errorf("text = %q", text)
	}
}

func TestIsPDF(t *testing.T) {
	if !isPDF("application/pdf", nil) {
		t.Error("content type should match")
	}
	if !isPDF("application/octet-stream", []byte("%PDF-1.7\n")) {
		t.Error("magic bytes should match")
	}
	if isPDF("text/html", []byte("<html>")) {
		t.Error("html is not pdf")
	}
}
