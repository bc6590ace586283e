package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Kanishk2004/plug-rag-sub002/internal/chunker"
	"github.com/Kanishk2004/plug-rag-sub002/internal/ingest"
)

// Document is one ingested knowledge-base entry: an uploaded file, a
// submitted URL, or a page captured by a crawl.
type Document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID     string             `bson:"tenant_id" json:"tenant_id"`
	Source       string             `bson:"source" json:"source"` // upload, url, crawl
	Filename     string             `bson:"filename,omitempty" json:"filename,omitempty"`
	OriginalName string             `bson:"original_name,omitempty" json:"original_name,omitempty"`
	SourceURL    string             `bson:"source_url,omitempty" json:"source_url,omitempty"`
	FilePath     string             `bson:"file_path,omitempty" json:"-"` // staging path
	ContentHash  string             `bson:"content_hash,omitempty" json:"content_hash,omitempty"`
	FileType     ingest.FileType    `bson:"file_type" json:"file_type"`
	MimeType     string             `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
	SizeBytes    int64              `bson:"size_bytes" json:"size_bytes"`

	Status       string `bson:"status" json:"status"`
	ErrorMessage string `bson:"error_message,omitempty" json:"error_message,omitempty"`
	ChunkCount   int    `bson:"chunk_count" json:"chunk_count"`
	TotalTokens  int    `bson:"total_tokens" json:"total_tokens"`

	Options  ProcessingOptions `bson:"options" json:"options"`
	Metadata DocumentMetadata  `bson:"metadata" json:"metadata"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	ProcessedAt *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// ProcessingOptions is the persisted form of the chunking and fetch options
// requested at submission time, replayed verbatim on rechunk.
type ProcessingOptions struct {
	MaxChunkSize     int   `bson:"max_chunk_size" json:"max_chunk_size"`
	Overlap          *int  `bson:"overlap,omitempty" json:"overlap,omitempty"`
	RespectStructure *bool `bson:"respect_structure,omitempty" json:"respect_structure,omitempty"`
	ExtractLinks     bool  `bson:"extract_links" json:"extract_links"`
	TimeoutSeconds   int   `bson:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// ToIngest converts persisted options to pipeline options.
func (o ProcessingOptions) ToIngest() ingest.ProcessingOptions {
	opts := ingest.ProcessingOptions{
		MaxChunkSize:     o.MaxChunkSize,
		Overlap:          o.Overlap,
		RespectStructure: o.RespectStructure,
		ExtractLinks:     o.ExtractLinks,
	}
	if o.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(o.TimeoutSeconds) * time.Second
	}
	return opts.Normalized()
}

// DocumentMetadata mirrors the extractor's metadata for API consumers.
type DocumentMetadata struct {
	Title          string        `bson:"title,omitempty" json:"title,omitempty"`
	Description    string        `bson:"description,omitempty" json:"description,omitempty"`
	Language       string        `bson:"language,omitempty" json:"language,omitempty"`
	WordCount      int           `bson:"word_count" json:"word_count"`
	CharCount      int           `bson:"char_count" json:"char_count"`
	PageCount      int           `bson:"page_count,omitempty" json:"page_count,omitempty"`
	Columns        []string      `bson:"columns,omitempty" json:"columns,omitempty"`
	QualityScore   float64       `bson:"quality_score" json:"quality_score"`
	LowConfidence  bool          `bson:"low_confidence,omitempty" json:"low_confidence,omitempty"`
	ProcessingTime time.Duration `bson:"processing_time,omitempty" json:"processing_time,omitempty"`
	Links          []ingest.Link `bson:"links,omitempty" json:"links,omitempty"`
}

// StoredChunk is one persisted chunk in the document_chunks collection.
// Chunks are denormalized into their own collection so vector search
// operates on them directly.
type StoredChunk struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	TenantID   string               `bson:"tenant_id" json:"tenant_id"`
	DocumentID primitive.ObjectID   `bson:"document_id" json:"document_id"`
	ChunkIndex int                  `bson:"chunk_index" json:"chunk_index"`
	Content    string               `bson:"content" json:"content"`
	TokenCount int                  `bson:"token_count" json:"token_count"`
	Boundary   chunker.BoundaryType `bson:"boundary" json:"boundary"`
	HasOverlap bool                 `bson:"has_overlap" json:"has_overlap"`
	Heading    string               `bson:"heading,omitempty" json:"heading,omitempty"`
	Level      int                  `bson:"level,omitempty" json:"level,omitempty"`
	Vector     []float32            `bson:"vector,omitempty" json:"-"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
}

// UploadResponse is returned after a document submission.
type UploadResponse struct {
	ID         string           `json:"id"`
	Filename   string           `json:"filename,omitempty"`
	SourceURL  string           `json:"source_url,omitempty"`
	Status     string           `json:"status"`
	ChunkCount int              `json:"chunk_count,omitempty"`
	Metadata   DocumentMetadata `json:"metadata,omitempty"`
	Message    string           `json:"message"`
	Duplicate  bool             `json:"duplicate,omitempty"`
}

// Document processing status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRejected   = "rejected"
)
