// Package chunker splits extracted documents into token-bounded chunks that
// respect structural boundaries where possible, with configurable overlap
// between adjacent chunks.
package chunker

import (
	"strings"

	"github.com/Kanishk2004/plug-rag-sub002/internal/ingest"
	"github.com/Kanishk2004/plug-rag-sub002/internal/tokenizer"
)

// BoundaryType records which splitting strategy produced a chunk's closing
// boundary; used for diagnostics and re-chunking decisions.
type BoundaryType string

const (
	BoundaryParagraph BoundaryType = "paragraph_boundary"
	BoundarySentence  BoundaryType = "sentence_boundary"
	BoundaryStructure BoundaryType = "document_structure"
	BoundaryManual    BoundaryType = "manual"
)

// Chunk is one bounded, retrievable slice of a document's text.
type Chunk struct {
	Content    string       `json:"content"`
	Index      int          `json:"index"`
	TokenCount int          `json:"token_count"`
	Type       BoundaryType `json:"type"`
	HasOverlap bool         `json:"has_overlap"`
	Heading    string       `json:"heading,omitempty"`
	Level      int          `json:"level,omitempty"`
}

// ChunkingError reports an invalid option combination, caught at entry
// before any text processing occurs.
type ChunkingError struct {
	Reason string
}

func (e *ChunkingError) Error() string { return "chunking: " + e.Reason }

// Chunker splits documents using an injected token counter. The counter must
// match the one used downstream for embeddings so budgeting and usage
// accounting agree.
type Chunker struct {
	counter tokenizer.Counter
}

// New returns a chunker using the given token counter.
func New(counter tokenizer.Counter) *Chunker {
	return &Chunker{counter: counter}
}

// Chunk splits doc into chunks of at most opts.MaxChunkSize tokens (the
// final chunk may be shorter). Splits snap to structural boundaries when
// opts.RespectStructure holds, fall back to sentence boundaries, and only
// then to hard token splits. Calling Chunk again with the same inputs yields
// byte-identical output.
func (c *Chunker) Chunk(doc *ingest.ExtractedDocument, opts ingest.ProcessingOptions) ([]Chunk, error) {
	opts = opts.Normalized()
	if opts.MaxChunkSize <= 0 {
		return nil, &ChunkingError{Reason: "maxChunkSize must be positive"}
	}
	// Only a caller-supplied overlap can be invalid; the default is clamped
	// to fit whatever budget is in effect.
	overlap := opts.OverlapTokens()
	if opts.Overlap != nil {
		if overlap < 0 {
			return nil, &ChunkingError{Reason: "overlap cannot be negative"}
		}
		if overlap >= opts.MaxChunkSize {
			return nil, &ChunkingError{Reason: "overlap must be smaller than maxChunkSize"}
		}
	}
	if overlap > opts.MaxChunkSize/2 {
		overlap = opts.MaxChunkSize / 2
	}

	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil, nil
	}

	run := &chunkRun{
		counter: c.counter,
		budget:  opts.MaxChunkSize,
		overlap: overlap,
	}

	if !opts.StructureRespected() {
		run.consumeUnstructured(doc.Text)
	} else {
		for _, seg := range segmentsOf(doc) {
			run.consume(seg)
		}
		run.finish()
	}

	return run.chunks, nil
}

// segment is one structural block with its heading context.
type segment struct {
	text    string
	kind    ingest.MarkerKind
	heading string
	level   int
}

// segmentsOf flattens the document's structure markers into ordered
// segments. Documents without markers fall back to blank-line paragraph
// splitting so plain text still chunks sensibly.
func segmentsOf(doc *ingest.ExtractedDocument) []segment {
	var segments []segment
	heading, level := "", 0

	for _, m := range doc.Structure {
		if m.Kind == ingest.MarkerHeading {
			heading, level = m.Label, m.Level
		}
		if m.Start >= m.End {
			continue
		}
		segments = append(segments, segment{
			text:    doc.Text[m.Start:m.End],
			kind:    m.Kind,
			heading: heading,
			level:   level,
		})
	}

	if len(segments) == 0 {
		for _, block := range strings.Split(doc.Text, "\n\n") {
			block = strings.TrimSpace(block)
			if block == "" {
				continue
			}
			segments = append(segments, segment{text: block, kind: ingest.MarkerParagraph})
		}
	}
	return segments
}

// chunkRun accumulates segments into chunks for a single Chunk call. All
// state lives on the run, so concurrent calls never share anything. tokens
// tracks the accumulated pieceCost of the buffer, so it includes the join
// separators that close will emit.
type chunkRun struct {
	counter tokenizer.Counter
	budget  int
	overlap int

	chunks []Chunk

	pieces     []string
	tokens     int
	seeded     bool // current chunk starts with an overlap window
	hasContent bool // current chunk has content beyond the overlap seed
	boundary   BoundaryType
	heading    string
	level      int
}

// consume adds one structural segment, closing the current chunk at the
// preceding boundary when the segment would not fit.
func (r *chunkRun) consume(seg segment) {
	segTokens := r.counter.Count(seg.text)

	// A single block larger than the whole budget cannot close on a
	// structural boundary; fall back to sentence splitting inside it.
	if segTokens > r.budget {
		if r.hasContent {
			r.close(r.boundary)
		}
		r.setContext(seg)
		r.consumeSentences(seg.text)
		return
	}

	cost := r.pieceCost(seg.text)
	if r.tokens+cost > r.budget {
		if r.hasContent {
			r.close(r.boundary)
		}
		r.trimSeed(seg.text)
		cost = r.pieceCost(seg.text)
	}
	if !r.hasContent {
		r.setContext(seg)
	}
	r.add(seg.text, cost)
	if seg.kind == ingest.MarkerParagraph {
		r.boundary = BoundaryParagraph
	} else {
		r.boundary = BoundaryStructure
	}
}

// consumeSentences splits an oversized block at sentence-ending punctuation,
// hard-splitting any single sentence that still exceeds the budget.
func (r *chunkRun) consumeSentences(text string) {
	for _, sentence := range splitSentences(text) {
		if r.counter.Count(sentence) > r.budget {
			if r.hasContent {
				r.close(BoundarySentence)
			}
			r.consumeTokenWindows(sentence)
			continue
		}
		cost := r.pieceCost(sentence)
		if r.tokens+cost > r.budget {
			if r.hasContent {
				r.close(BoundarySentence)
			}
			r.trimSeed(sentence)
			cost = r.pieceCost(sentence)
		}
		r.add(sentence, cost)
		r.boundary = BoundarySentence
	}
}

// consumeTokenWindows force-splits an unbroken run at the token limit,
// tagging the resulting chunks manual.
func (r *chunkRun) consumeTokenWindows(text string) {
	words := strings.Fields(text)
	if len(words) <= 1 {
		r.consumeRuneWindows(text)
		return
	}
	for _, word := range words {
		if r.counter.Count(word) > r.budget {
			if r.hasContent {
				r.close(BoundaryManual)
			}
			r.consumeRuneWindows(word)
			continue
		}
		cost := r.pieceCost(word)
		if r.tokens+cost > r.budget {
			if r.hasContent {
				r.close(BoundaryManual)
			}
			r.trimSeed(word)
			cost = r.pieceCost(word)
		}
		r.add(word, cost)
		r.boundary = BoundaryManual
	}
}

// consumeRuneWindows handles text without any whitespace at all, slicing at
// rune granularity so a boundary never lands inside a UTF-8 sequence.
func (r *chunkRun) consumeRuneWindows(text string) {
	runes := []rune(text)
	// ~4 chars per token is the usual BPE density; the window shrinks below
	// until the counter agrees.
	window := r.budget * 4
	for start := 0; start < len(runes); {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		for r.counter.Count(piece) > r.budget && end-start > 1 {
			end -= (end - start) / 10
			if end <= start {
				end = start + 1
			}
			piece = string(runes[start:end])
		}
		if r.hasContent {
			r.close(BoundaryManual)
		}
		r.trimSeed(piece)
		r.add(piece, r.pieceCost(piece))
		r.boundary = BoundaryManual
		start = end
	}
}

// consumeUnstructured implements pure token-count splitting for
// respectStructure=false.
func (r *chunkRun) consumeUnstructured(text string) {
	r.consumeTokenWindows(text)
	if r.hasContent {
		r.close(BoundaryManual)
		r.dropPendingSeed()
	}
}

func (r *chunkRun) setContext(seg segment) {
	r.heading = seg.heading
	r.level = seg.level
}

func (r *chunkRun) add(text string, tokens int) {
	r.pieces = append(r.pieces, text)
	r.tokens += tokens
	r.hasContent = true
}

// pieceCost counts the tokens text adds to the buffer, charging the join
// separator once pieces are already buffered so the accumulated total tracks
// the token count of the final joined content.
func (r *chunkRun) pieceCost(text string) int {
	if len(r.pieces) == 0 {
		return r.counter.Count(text)
	}
	return r.counter.Count("\n\n" + text)
}

// trimSeed shrinks a pending overlap seed from its leading edge until text
// fits the budget alongside it. The seed words nearest the new content carry
// the most context, so those survive. A seed trimmed to nothing is dropped
// and the chunk loses its overlap flag.
func (r *chunkRun) trimSeed(text string) {
	if !r.seeded || r.hasContent || len(r.pieces) == 0 {
		return
	}
	words := strings.Fields(r.pieces[0])
	for len(words) > 0 && r.tokens+r.pieceCost(text) > r.budget {
		words = words[1:]
		r.pieces[0] = strings.Join(words, " ")
		r.tokens = r.counter.Count(r.pieces[0])
	}
	if len(words) == 0 {
		r.dropPendingSeed()
	}
}

// close emits the current chunk and seeds the next one with the trailing
// overlap window.
func (r *chunkRun) close(boundary BoundaryType) {
	sep := "\n\n"
	if boundary == BoundarySentence || boundary == BoundaryManual {
		// Sentence and token pieces read as running prose.
		sep = " "
	}
	content := strings.Join(r.pieces, sep)

	r.chunks = append(r.chunks, Chunk{
		Content:    content,
		Index:      len(r.chunks),
		TokenCount: r.counter.Count(content),
		Type:       boundary,
		HasOverlap: r.seeded,
		Heading:    r.heading,
		Level:      r.level,
	})

	r.pieces, r.tokens = nil, 0
	r.seeded, r.hasContent = false, false

	if r.overlap > 0 {
		if tail := r.overlapTail(content); tail != "" {
			r.pieces = append(r.pieces, tail)
			r.tokens = r.counter.Count(tail)
			r.seeded = true
		}
	}
}

// finish flushes whatever remains; a pending buffer holding only the overlap
// seed is discarded, as that text already lives in the previous chunk.
func (r *chunkRun) finish() {
	if r.hasContent {
		r.close(r.boundary)
	}
	r.dropPendingSeed()
}

func (r *chunkRun) dropPendingSeed() {
	r.pieces, r.tokens = nil, 0
	r.seeded = false
}

// overlapTail returns the trailing words of content whose combined token
// count stays within the overlap budget.
func (r *chunkRun) overlapTail(content string) string {
	words := strings.Fields(content)
	total := 0
	i := len(words)
	for i > 0 {
		t := r.counter.Count(words[i-1])
		if total+t > r.overlap {
			break
		}
		total += t
		i--
	}
	if i == len(words) {
		return ""
	}
	return strings.Join(words[i:], " ")
}

// splitSentences breaks text at sentence-ending punctuation followed by
// whitespace.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) &&
			(runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t') {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
