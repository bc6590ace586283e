package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CrawlJob tracks a site crawl. Each fetched page becomes its own Document
// so crawled content is chunked and retrieved like any other source.
type CrawlJob struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID      string             `bson:"tenant_id" json:"tenant_id"`
	URL           string             `bson:"url" json:"url"`
	Status        string             `bson:"status" json:"status"`
	PagesCrawled  int                `bson:"pages_crawled" json:"pages_crawled"`
	PagesIngested int                `bson:"pages_ingested" json:"pages_ingested"`
	Error         string             `bson:"error,omitempty" json:"error,omitempty"`

	// Crawl configuration
	MaxPages       int      `bson:"max_pages,omitempty" json:"max_pages,omitempty"`
	MaxDepth       int      `bson:"max_depth,omitempty" json:"max_depth,omitempty"`
	AllowedDomains []string `bson:"allowed_domains,omitempty" json:"allowed_domains,omitempty"`
	AllowedPaths   []string `bson:"allowed_paths,omitempty" json:"allowed_paths,omitempty"`
	RenderJS       bool     `bson:"render_js" json:"render_js"`

	Options ProcessingOptions `bson:"options" json:"options"`

	DocumentIDs []primitive.ObjectID `bson:"document_ids,omitempty" json:"document_ids,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Crawl status constants
const (
	CrawlStatusPending   = "pending"
	CrawlStatusCrawling  = "crawling"
	CrawlStatusCompleted = "completed"
	CrawlStatusFailed    = "failed"
)
