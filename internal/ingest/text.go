package ingest

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var (
	paragraphSplitRegex = regexp.MustCompile(`\n[ \t]*\n+`)
	atxHeadingRegex     = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listItemRegex       = regexp.MustCompile(`^(\s*)([-*+]|\d+[.)])\s+`)
)

// TextExtractor handles plain text and Markdown. Blank-line-separated blocks
// become paragraph boundaries; in Markdown mode ATX headings are promoted to
// structural headings with level equal to the number of leading hashes, and
// list blocks are marked as such.
type TextExtractor struct {
	Markdown bool
}

func (e *TextExtractor) Extract(ctx context.Context, data []byte, opts ProcessingOptions) (*ExtractedDocument, error) {
	if len(data) > 0 && !isMostlyText(data) {
		return nil, &ExtractionError{Type: e.fileType(), Err: errors.New("content appears to be binary, not text")}
	}

	text := normalizeNewlines(string(data))
	builder := &docBuilder{}

	for _, block := range paragraphSplitRegex.Split(text, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if e.Markdown {
			e.addMarkdownBlock(builder, block)
			continue
		}
		builder.addParagraph(block)
	}

	meta := Metadata{}
	if e.Markdown {
		meta.Title = firstHeadingLabel(builder.markers)
	}
	return builder.build(meta, nil), nil
}

func (e *TextExtractor) fileType() FileType {
	if e.Markdown {
		return FileTypeMarkdown
	}
	return FileTypeTXT
}

// addMarkdownBlock classifies one blank-line-separated block. A block that
// starts with an ATX heading contributes the heading and the remainder as
// separate markers.
func (e *TextExtractor) addMarkdownBlock(builder *docBuilder, block string) {
	lines := strings.Split(block, "\n")

	if m := atxHeadingRegex.FindStringSubmatch(lines[0]); m != nil {
		builder.addHeading(strings.TrimSpace(m[2]), len(m[1]))
		rest := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		if rest != "" {
			e.addMarkdownBlock(builder, rest)
		}
		return
	}

	if listItemRegex.MatchString(lines[0]) {
		builder.addBlock(MarkerListItem, "", 0, block)
		return
	}

	builder.addParagraph(block)
}

func firstHeadingLabel(markers []StructureMarker) string {
	for _, m := range markers {
		if m.Kind == MarkerHeading {
			return m.Label
		}
	}
	return ""
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// isMostlyText rejects obviously binary buffers handed in with a text MIME
// type (NUL bytes are a strong signal).
func isMostlyText(data []byte) bool {
	sample := data
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	for _, b := range sample {
		if b == 0 {
			return false
		}
	}
	return true
}
