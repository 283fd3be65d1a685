package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentExtractTrimsAndDropsBlankLines(t *testing.T) {
	extractor := NewDocumentExtractor()

	text, err := extractor.Extract(context.Background(), "survey.txt",
		[]byte("  First question  \r\n\n\t Second question \n\n"))
	require.NoError(t, err)
	assert.Equal(t, "First question\nSecond question", text)
}

func TestDocumentExtractRejectsEmpty(t *testing.T) {
	extractor := NewDocumentExtractor()

	_, err := extractor.Extract(context.Background(), "empty.txt", nil)
	assert.Error(t, err)
}

func TestDocumentExtractRejectsBinary(t *testing.T) {
	extractor := NewDocumentExtractor()

	_, err := extractor.Extract(context.Background(), "report.bin", []byte{0xff, 0xfe, 0x00})
	assert.Error(t, err)
}
