package ingest

import "strings"

// FileType identifies a supported document format.
type FileType string

const (
	FileTypePDF      FileType = "pdf"
	FileTypeDOCX     FileType = "docx"
	FileTypeTXT      FileType = "txt"
	FileTypeMarkdown FileType = "md"
	FileTypeCSV      FileType = "csv"
	FileTypeXLSX     FileType = "xlsx"
	FileTypeHTML     FileType = "html"
	FileTypeUnknown  FileType = "unknown"
)

// MarkerKind classifies a structural boundary inside extracted text.
type MarkerKind string

const (
	MarkerHeading   MarkerKind = "heading"
	MarkerParagraph MarkerKind = "paragraph"
	MarkerListItem  MarkerKind = "list_item"
	MarkerTable     MarkerKind = "table"
	MarkerRecord    MarkerKind = "record"
	MarkerPage      MarkerKind = "page"
)

// StructureMarker locates one structural block inside ExtractedDocument.Text.
// Start and End are byte offsets into Text. For headings, Text carries the
// heading text and Level its nesting depth; for pages, Level is the page
// number.
type StructureMarker struct {
	Kind  MarkerKind `json:"kind"`
	Label string     `json:"label,omitempty"`
	Level int        `json:"level,omitempty"`
	Start int        `json:"start"`
	End   int        `json:"end"`
}

// Link is an outbound hyperlink collected from HTML sources.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// Metadata carries descriptive fields about an extracted document.
type Metadata struct {
	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	SourceURL     string   `json:"source_url,omitempty"`
	Language      string   `json:"language,omitempty"`
	WordCount     int      `json:"word_count"`
	CharCount     int      `json:"char_count"`
	PageCount     int      `json:"page_count,omitempty"`
	Columns       []string `json:"columns,omitempty"`
	QualityScore  float64  `json:"quality_score"`
	LowConfidence bool     `json:"low_confidence"`
}

// ExtractedDocument is the output of extraction for one source. It is
// created fresh per call, never mutated afterwards, and handed directly to
// the chunker.
type ExtractedDocument struct {
	Text      string            `json:"text"`
	Structure []StructureMarker `json:"structure"`
	Metadata  Metadata          `json:"metadata"`
	Links     []Link            `json:"links,omitempty"`
}

const blockSeparator = "\n\n"

// docBuilder assembles normalized text and structure markers with consistent
// block separation and offsets. All format extractors go through it so that
// marker offsets always agree with the final text.
type docBuilder struct {
	text    strings.Builder
	markers []StructureMarker
}

// addBlock appends one structural block. Empty content still records a
// marker (needed for unreadable PDF pages) but contributes no text.
func (b *docBuilder) addBlock(kind MarkerKind, label string, level int, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		offset := b.text.Len()
		b.markers = append(b.markers, StructureMarker{
			Kind: kind, Label: label, Level: level, Start: offset, End: offset,
		})
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString(blockSeparator)
	}
	start := b.text.Len()
	b.text.WriteString(content)
	b.markers = append(b.markers, StructureMarker{
		Kind: kind, Label: label, Level: level, Start: start, End: b.text.Len(),
	})
}

func (b *docBuilder) addParagraph(content string) {
	b.addBlock(MarkerParagraph, "", 0, content)
}

func (b *docBuilder) addHeading(text string, level int) {
	b.addBlock(MarkerHeading, strings.TrimSpace(text), level, text)
}

// build finalizes the document, filling in derived counts.
func (b *docBuilder) build(meta Metadata, links []Link) *ExtractedDocument {
	text := b.text.String()
	meta.WordCount = len(strings.Fields(text))
	meta.CharCount = len(text)
	if meta.QualityScore == 0 && text != "" {
		meta.QualityScore = scoreTextQuality(text)
	}
	return &ExtractedDocument{
		Text:      text,
		Structure: b.markers,
		Metadata:  meta,
		Links:     links,
	}
}
