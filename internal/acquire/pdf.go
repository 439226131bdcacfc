package acquire

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

func isPDF(contentType string, body []byte) bool {
	return strings.Contains(strings.ToLower(contentType), "application/pdf") ||
		bytes.HasPrefix(body, []byte("%PDF-"))
}

// pdfText extracts the plain text layer of a PDF document.
func pdfText(body []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return normalizeText(string(b)), nil
}
