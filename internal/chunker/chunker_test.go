package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kanishk2004/plug-rag-sub002/internal/ingest"
	"github.com/Kanishk2004/plug-rag-sub002/internal/tokenizer"
)

func newTestChunker() *Chunker {
	return New(tokenizer.Heuristic{})
}

func overlapTokens(n int) *int {
	return &n
}

// docFromBlocks builds a document whose structure markers match the
// blank-line joined text, the same layout the extractors produce.
func docFromBlocks(kind ingest.MarkerKind, blocks ...string) *ingest.ExtractedDocument {
	var b strings.Builder
	var markers []ingest.StructureMarker
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		start := b.Len()
		b.WriteString(block)
		markers = append(markers, ingest.StructureMarker{
			Kind:  kind,
			Start: start,
			End:   b.Len(),
		})
	}
	return &ingest.ExtractedDocument{Text: b.String(), Structure: markers}
}

func repeatSentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "Sentence number %d ends here.", i)
	}
	return b.String()
}

func TestChunkEmptyDocument(t *testing.T) {
	c := newTestChunker()

	chunks, err := c.Chunk(&ingest.ExtractedDocument{Text: "   \n\n  "}, ingest.DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.Chunk(nil, ingest.DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkSingleChunkNoOverlap(t *testing.T) {
	c := newTestChunker()
	doc := docFromBlocks(ingest.MarkerParagraph, "A short paragraph.", "Another short one.")

	chunks, err := c.Chunk(doc, ingest.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].Index)
	assert.False(t, chunks[0].HasOverlap)
	assert.Equal(t, doc.Text, chunks[0].Content)
	assert.Equal(t, BoundaryParagraph, chunks[0].Type)
}

func TestChunkOverlapTooLarge(t *testing.T) {
	c := newTestChunker()
	doc := docFromBlocks(ingest.MarkerParagraph, "some text")

	_, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 100, Overlap: overlapTokens(100)})
	var cerr *ChunkingError
	require.ErrorAs(t, err, &cerr)

	_, err = c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 100, Overlap: overlapTokens(150)})
	require.ErrorAs(t, err, &cerr)
}

func TestChunkNegativeOverlap(t *testing.T) {
	c := newTestChunker()
	doc := docFromBlocks(ingest.MarkerParagraph, "some text")

	_, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 100, Overlap: overlapTokens(-1)})
	var cerr *ChunkingError
	require.ErrorAs(t, err, &cerr)
}

// A 1500-word document with a 700-token budget and 100-token overlap must
// produce three chunks, every chunk within budget, and overlap carried into
// chunks two and three.
func TestChunkThreeChunkScenario(t *testing.T) {
	c := newTestChunker()
	doc := docFromBlocks(ingest.MarkerParagraph, repeatSentences(300)) // 5 words per sentence

	chunks, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 700, Overlap: overlapTokens(100)})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, 700, "chunk %d over budget", i)
		assert.Equal(t, i, chunk.Index)
		assert.NotEqual(t, " ", chunk.Content[:1], "chunk %d starts with whitespace", i)
		assert.NotEqual(t, " ", chunk.Content[len(chunk.Content)-1:], "chunk %d ends with whitespace", i)
	}

	assert.False(t, chunks[0].HasOverlap)
	assert.True(t, chunks[1].HasOverlap)
	assert.True(t, chunks[2].HasOverlap)
}

// Joining the chunks and removing the overlap windows must reproduce the
// original text up to whitespace normalization.
func TestChunkReconstruction(t *testing.T) {
	c := newTestChunker()
	original := repeatSentences(300)
	doc := docFromBlocks(ingest.MarkerParagraph, original)

	overlap := 100
	chunks, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 700, Overlap: &overlap})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var words []string
	for _, chunk := range chunks {
		cw := strings.Fields(chunk.Content)
		if chunk.HasOverlap {
			cw = cw[overlap:]
		}
		words = append(words, cw...)
	}
	assert.Equal(t, strings.Fields(original), words)
}

func TestChunkNoMidWordBoundaries(t *testing.T) {
	c := newTestChunker()
	original := repeatSentences(400)
	doc := docFromBlocks(ingest.MarkerParagraph, original)

	chunks, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 200, Overlap: overlapTokens(30)})
	require.NoError(t, err)

	valid := make(map[string]bool)
	for _, w := range strings.Fields(original) {
		valid[w] = true
	}
	for i, chunk := range chunks {
		for _, w := range strings.Fields(chunk.Content) {
			assert.True(t, valid[w], "chunk %d split mid-word: %q", i, w)
		}
	}
}

func TestChunkDeterministic(t *testing.T) {
	c := newTestChunker()
	doc := docFromBlocks(ingest.MarkerParagraph, repeatSentences(250), repeatSentences(50))
	opts := ingest.ProcessingOptions{MaxChunkSize: 300, Overlap: overlapTokens(40)}

	first, err := c.Chunk(doc, opts)
	require.NoError(t, err)
	second, err := c.Chunk(doc, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChunkStructuralBoundaries(t *testing.T) {
	c := newTestChunker()

	// Two paragraphs of 60 tokens each against a 100-token budget: the
	// split must land on the paragraph boundary, not inside either one.
	p1 := strings.Repeat("alpha ", 59) + "alpha."
	p2 := strings.Repeat("beta ", 59) + "beta."
	doc := docFromBlocks(ingest.MarkerParagraph, p1, p2)

	chunks, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 100, Overlap: overlapTokens(10)})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, p1, chunks[0].Content)
	assert.Equal(t, BoundaryParagraph, chunks[0].Type)
	assert.True(t, strings.HasSuffix(chunks[1].Content, p2))
}

func TestChunkHeadingContext(t *testing.T) {
	c := newTestChunker()

	text := "Install Guide\n\n" + strings.Repeat("step ", 99) + "done.\n\nUsage\n\n" + strings.Repeat("call ", 99) + "done."
	markers := []ingest.StructureMarker{
		{Kind: ingest.MarkerHeading, Label: "Install Guide", Level: 1, Start: 0, End: 13},
		{Kind: ingest.MarkerParagraph, Start: 15, End: 15 + 500},
		{Kind: ingest.MarkerHeading, Label: "Usage", Level: 1, Start: 517, End: 522},
		{Kind: ingest.MarkerParagraph, Start: 524, End: 524 + 500},
	}
	doc := &ingest.ExtractedDocument{Text: text, Structure: markers}

	chunks, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 120, Overlap: overlapTokens(10)})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	assert.Equal(t, "Install Guide", chunks[0].Heading)
	assert.Equal(t, 1, chunks[0].Level)
	assert.Equal(t, "Usage", chunks[len(chunks)-1].Heading)
}

func TestChunkIgnoreStructure(t *testing.T) {
	c := newTestChunker()
	respect := false
	doc := docFromBlocks(ingest.MarkerParagraph, repeatSentences(100), repeatSentences(100))

	chunks, err := c.Chunk(doc, ingest.ProcessingOptions{
		MaxChunkSize:     120,
		Overlap:          overlapTokens(20),
		RespectStructure: &respect,
	})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.Equal(t, BoundaryManual, chunk.Type, "chunk %d", i)
		assert.LessOrEqual(t, chunk.TokenCount, 120)
	}
}

func TestChunkUnbrokenRun(t *testing.T) {
	// No whitespace at all; still must split without error and within budget
	// under a real BPE counter.
	tk, err := tokenizer.NewTiktoken("cl100k_base")
	require.NoError(t, err)

	doc := &ingest.ExtractedDocument{Text: strings.Repeat("ab", 5000)}
	chunks, chunkErr := New(tk).Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 200, Overlap: overlapTokens(0)})
	require.NoError(t, chunkErr)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, 200, "chunk %d", i)
		assert.Equal(t, BoundaryManual, chunk.Type)
	}
}

// Paragraphs of 90 tokens against a 100-token budget leave only 10 tokens of
// headroom per chunk. The overlap window (80, clamped to 50) must shrink to
// that headroom instead of pushing seeded chunks past the budget.
func TestChunkSeededChunksStayWithinBudget(t *testing.T) {
	c := newTestChunker()
	p1 := strings.Repeat("alpha ", 89) + "alpha."
	p2 := strings.Repeat("beta ", 89) + "beta."
	p3 := strings.Repeat("gamma ", 89) + "gamma."
	doc := docFromBlocks(ingest.MarkerParagraph, p1, p2, p3)

	chunks, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 100, Overlap: overlapTokens(80)})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, 100, "chunk %d over budget", i)
	}
	assert.False(t, chunks[0].HasOverlap)
	assert.True(t, chunks[1].HasOverlap)
	assert.True(t, chunks[2].HasOverlap)
	assert.True(t, strings.HasSuffix(chunks[1].Content, p2))
	assert.True(t, strings.HasSuffix(chunks[2].Content, p3))
}

// A budget below the default overlap must still chunk when overlap is left
// unset; the default shrinks to fit instead of failing validation.
func TestChunkDefaultOverlapSmallBudget(t *testing.T) {
	c := newTestChunker()
	doc := docFromBlocks(ingest.MarkerParagraph, repeatSentences(100))

	chunks, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 80})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, chunk.TokenCount, 80, "chunk %d over budget", i)
	}
	assert.False(t, chunks[0].HasOverlap)
	assert.True(t, chunks[1].HasOverlap)
}

// An explicit zero disables overlap; it must not be rewritten to the default.
func TestChunkExplicitZeroOverlap(t *testing.T) {
	c := newTestChunker()
	doc := docFromBlocks(ingest.MarkerParagraph, repeatSentences(100))

	chunks, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 100, Overlap: overlapTokens(0)})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.False(t, chunk.HasOverlap, "chunk %d", i)
	}
}

func TestChunkOverlapClampedToHalfBudget(t *testing.T) {
	c := newTestChunker()
	doc := docFromBlocks(ingest.MarkerParagraph, repeatSentences(200))

	// Overlap of 80 against a budget of 100 exceeds half the budget and is
	// clamped to 50; progress must still be monotonic.
	chunks, err := c.Chunk(doc, ingest.ProcessingOptions{MaxChunkSize: 100, Overlap: overlapTokens(80)})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i := 1; i < len(chunks); i++ {
		assert.True(t, chunks[i].HasOverlap)
		assert.Equal(t, i, chunks[i].Index)
	}
}
