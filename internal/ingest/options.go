package ingest

import "time"

// Default processing limits. MaxUploadBytes bounds uploaded files; fetched
// URL content is bounded separately via MaxContentLength.
const (
	DefaultMaxChunkSize     = 700
	DefaultOverlap          = 100
	DefaultFetchTimeout     = 30 * time.Second
	DefaultMaxContentLength = int64(10 << 20) // 10MB
	MaxUploadBytes          = int64(50 << 20) // 50MB
)

// ProcessingOptions is threaded through extraction and chunking. Zero values
// fall back to defaults; see Normalized.
type ProcessingOptions struct {
	// MaxChunkSize is the target token budget per chunk.
	MaxChunkSize int `json:"max_chunk_size,omitempty"`
	// Overlap is the token count repeated at the start of the next chunk,
	// clamped so that it never exceeds MaxChunkSize/2. The pointer
	// distinguishes "unset" (DefaultOverlap) from an explicit zero.
	Overlap *int `json:"overlap,omitempty"`
	// RespectStructure snaps split points to structural boundaries. The
	// pointer distinguishes "unset" (true by default) from explicit false.
	RespectStructure *bool `json:"respect_structure,omitempty"`
	// ExtractLinks populates ExtractedDocument.Links for HTML/URL sources.
	ExtractLinks bool `json:"extract_links,omitempty"`
	// Timeout bounds the HTTP fetch for URL ingestion.
	Timeout time.Duration `json:"timeout,omitempty"`
	// MaxContentLength caps the bytes read from a fetched URL.
	MaxContentLength int64 `json:"max_content_length,omitempty"`
}

// DefaultOptions returns the platform defaults.
func DefaultOptions() ProcessingOptions {
	return ProcessingOptions{
		MaxChunkSize:     DefaultMaxChunkSize,
		Timeout:          DefaultFetchTimeout,
		MaxContentLength: DefaultMaxContentLength,
	}
}

// Normalized returns a copy with defaults applied.
func (o ProcessingOptions) Normalized() ProcessingOptions {
	if o.MaxChunkSize == 0 {
		o.MaxChunkSize = DefaultMaxChunkSize
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultFetchTimeout
	}
	if o.MaxContentLength <= 0 {
		o.MaxContentLength = DefaultMaxContentLength
	}
	return o
}

// OverlapTokens reports the configured overlap window. Unset means
// DefaultOverlap; an explicit zero disables overlap entirely.
func (o ProcessingOptions) OverlapTokens() int {
	if o.Overlap == nil {
		return DefaultOverlap
	}
	return *o.Overlap
}

// StructureRespected reports whether split points should snap to structural
// boundaries. Defaults to true when unset.
func (o ProcessingOptions) StructureRespected() bool {
	if o.RespectStructure == nil {
		return true
	}
	return *o.RespectStructure
}
