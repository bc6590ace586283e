package ingest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// minCharsPerPage is the minimum recovered text per page before a PDF is
// flagged low confidence (covers scanned/image-only documents).
const minCharsPerPage = 32

// PDFExtractor extracts text per page, preserving page boundaries as
// structural markers. Pages with no extractable text are recorded but do not
// fail the extraction.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte, opts ProcessingOptions) (*ExtractedDocument, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{Type: FileTypePDF, Err: fmt.Errorf("open pdf: %w", err)}
	}

	pages := reader.NumPage()
	if pages <= 0 {
		return nil, &ExtractionError{Type: FileTypePDF, Err: fmt.Errorf("pdf has no pages")}
	}

	builder := &docBuilder{}
	extractedChars := 0

	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			builder.addBlock(MarkerPage, fmt.Sprintf("page %d", i), i, "")
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			// A single unreadable page keeps its boundary marker; the rest
			// of the document is still worth extracting.
			builder.addBlock(MarkerPage, fmt.Sprintf("page %d", i), i, "")
			continue
		}

		builder.addBlock(MarkerPage, fmt.Sprintf("page %d", i), i, text)
		extractedChars += len(text)
	}

	meta := Metadata{PageCount: pages}
	doc := builder.build(meta, nil)

	// Zero or near-zero text from a multi-page PDF is a flagged success, not
	// an error: the ingestion decision belongs to the caller.
	if extractedChars < minCharsPerPage*pages || doc.Metadata.QualityScore < lowQualityThreshold {
		doc.Metadata.LowConfidence = true
	}
	return doc, nil
}
