package adapter

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DocumentExtractor pulls plain text out of uploaded documents so templates
// can be seeded from existing questionnaires. Only text payloads are handled
// here; binary formats are converted upstream.
type DocumentExtractor struct{}

// NewDocumentExtractor constructs the extractor.
func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{}
}

// Extract returns the normalised text content of a document.
func (e *DocumentExtractor) Extract(ctx context.Context, filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("document %s is empty", filename)
	}
	if !utf8.Valid(content) {
		return "", fmt.Errorf("document %s is not text", filename)
	}
	lines := strings.Split(string(content), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n"), nil
}
