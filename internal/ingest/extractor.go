package ingest

import (
	"context"
	"fmt"
)

// Extractor converts raw bytes of one format into an ExtractedDocument.
// Implementations must be pure functions of their inputs so that many
// documents can be processed in parallel worker slots.
type Extractor interface {
	Extract(ctx context.Context, data []byte, opts ProcessingOptions) (*ExtractedDocument, error)
}

// Registry maps file types to extraction strategies. New formats are added
// by registering a strategy, not by branching inside a monolithic function.
type Registry struct {
	extractors map[FileType]Extractor
}

// NewRegistry returns a registry with all built-in format strategies.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[FileType]Extractor)}
	r.Register(FileTypePDF, &PDFExtractor{})
	r.Register(FileTypeDOCX, &DOCXExtractor{})
	r.Register(FileTypeTXT, &TextExtractor{})
	r.Register(FileTypeMarkdown, &TextExtractor{Markdown: true})
	r.Register(FileTypeCSV, &CSVExtractor{})
	r.Register(FileTypeXLSX, &XLSXExtractor{})
	r.Register(FileTypeHTML, &HTMLExtractor{})
	return r
}

// Register installs or replaces the strategy for a file type.
func (r *Registry) Register(t FileType, e Extractor) {
	r.extractors[t] = e
}

// Extract dispatches to the strategy for fileType.
func (r *Registry) Extract(ctx context.Context, data []byte, fileType FileType, opts ProcessingOptions) (*ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	extractor, ok := r.extractors[fileType]
	if !ok {
		return nil, &ExtractionError{Type: fileType, Err: fmt.Errorf("no extractor registered for type %q", fileType)}
	}
	return extractor.Extract(ctx, data, opts.Normalized())
}
