package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()

	doc, err := r.Extract(context.Background(), []byte("hello world"), FileTypeTXT, ProcessingOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello world", doc.Text)
}

func TestRegistryUnknownType(t *testing.T) {
	r := NewRegistry()

	_, err := r.Extract(context.Background(), []byte("x"), FileTypeUnknown, ProcessingOptions{})

	var xErr *ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Equal(t, FileTypeUnknown, xErr.Type)
}

func TestRegistryCancelledContext(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Extract(ctx, []byte("hello"), FileTypeTXT, ProcessingOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScoreTextQuality(t *testing.T) {
	clean := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 5)
	assert.Greater(t, scoreTextQuality(clean), 0.8)

	corrupted := strings.Repeat("��� ", 20)
	assert.Less(t, scoreTextQuality(corrupted), lowQualityThreshold)

	assert.Equal(t, 0.0, scoreTextQuality(""))
	assert.Equal(t, 0.1, scoreTextQuality("short"))
}

func TestQualityAcceptsNonEnglishText(t *testing.T) {
	text := strings.Repeat("Dokumentenverarbeitung für größere Datenmengen ist üblich. ", 4)
	assert.Greater(t, scoreTextQuality(text), 0.5)
}
