package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextExtractorParagraphs(t *testing.T) {
	input := "First paragraph here.\n\nSecond paragraph here.\n\n\nThird one."

	doc, err := (&TextExtractor{}).Extract(context.Background(), []byte(input), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "First paragraph here.\n\nSecond paragraph here.\n\nThird one.", doc.Text)
	require.Len(t, doc.Structure, 3)
	for _, m := range doc.Structure {
		assert.Equal(t, MarkerParagraph, m.Kind)
	}
	assert.Equal(t, 9, doc.Metadata.WordCount)
}

func TestTextExtractorNormalizesLineEndings(t *testing.T) {
	input := "one\r\n\r\ntwo\r\rthree"

	doc, err := (&TextExtractor{}).Extract(context.Background(), []byte(input), DefaultOptions())
	require.NoError(t, err)

	assert.NotContains(t, doc.Text, "\r")
	assert.Equal(t, "one\n\ntwo\n\nthree", doc.Text)
}

func TestTextExtractorRejectsBinary(t *testing.T) {
	input := []byte{'h', 'i', 0x00, 0x01, 0x02}

	_, err := (&TextExtractor{}).Extract(context.Background(), input, DefaultOptions())

	var xErr *ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Equal(t, FileTypeTXT, xErr.Type)
}

func TestMarkdownHeadings(t *testing.T) {
	input := "# Install Guide\n\nRun the installer.\n\n## Requirements\n\nGo 1.24 or newer."

	doc, err := (&TextExtractor{Markdown: true}).Extract(context.Background(), []byte(input), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, doc.Structure, 4)
	assert.Equal(t, MarkerHeading, doc.Structure[0].Kind)
	assert.Equal(t, "Install Guide", doc.Structure[0].Label)
	assert.Equal(t, 1, doc.Structure[0].Level)
	assert.Equal(t, MarkerParagraph, doc.Structure[1].Kind)
	assert.Equal(t, MarkerHeading, doc.Structure[2].Kind)
	assert.Equal(t, 2, doc.Structure[2].Level)

	// Marker offsets must agree with the final text
	h := doc.Structure[0]
	assert.Equal(t, "Install Guide", doc.Text[h.Start:h.End])
}

func TestMarkdownTitleFromFirstHeading(t *testing.T) {
	input := "Intro text before any heading.\n\n# The Title\n\nBody."

	doc, err := (&TextExtractor{Markdown: true}).Extract(context.Background(), []byte(input), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "The Title", doc.Metadata.Title)
}

func TestMarkdownHeadingWithBodyInSameBlock(t *testing.T) {
	// No blank line between heading and body
	input := "## Setup\nClone the repository first."

	doc, err := (&TextExtractor{Markdown: true}).Extract(context.Background(), []byte(input), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, doc.Structure, 2)
	assert.Equal(t, MarkerHeading, doc.Structure[0].Kind)
	assert.Equal(t, "Setup", doc.Structure[0].Label)
	assert.Equal(t, MarkerParagraph, doc.Structure[1].Kind)
}

func TestMarkdownListBlock(t *testing.T) {
	input := "Shopping list:\n\n- apples\n- pears\n- plums"

	doc, err := (&TextExtractor{Markdown: true}).Extract(context.Background(), []byte(input), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, doc.Structure, 2)
	assert.Equal(t, MarkerListItem, doc.Structure[1].Kind)
}

func TestMarkdownHashesInsideParagraphNotHeadings(t *testing.T) {
	input := "The #1 rule: use issue #42 in commit messages."

	doc, err := (&TextExtractor{Markdown: true}).Extract(context.Background(), []byte(input), DefaultOptions())
	require.NoError(t, err)

	require.Len(t, doc.Structure, 1)
	assert.Equal(t, MarkerParagraph, doc.Structure[0].Kind)
	assert.Empty(t, doc.Metadata.Title)
}
