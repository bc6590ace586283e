package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Kanishk2004/plug-rag-sub002/internal/ai"
	"github.com/Kanishk2004/plug-rag-sub002/internal/chunker"
	"github.com/Kanishk2004/plug-rag-sub002/internal/config"
	"github.com/Kanishk2004/plug-rag-sub002/internal/crawler"
	"github.com/Kanishk2004/plug-rag-sub002/internal/ingest"
	"github.com/Kanishk2004/plug-rag-sub002/internal/logger"
	"github.com/Kanishk2004/plug-rag-sub002/internal/telemetry"
	"github.com/Kanishk2004/plug-rag-sub002/models"
)

// ProcessingService runs the ingestion pipeline: validation gate, format
// detection, extraction, chunking, persistence, and embedding. It implements
// queue.Pipeline so the worker and the sync upload path share one code path.
type ProcessingService struct {
	cfg       *config.Config
	documents *mongo.Collection
	chunks    *mongo.Collection
	crawls    *mongo.Collection
	db        *mongo.Database
	storage   *FileStorageManager
	registry  *ingest.Registry
	fetcher   *ingest.URLExtractor
	chunker   *chunker.Chunker
	embedder  *ai.EmbeddingClient
	metrics   *telemetry.Metrics
}

func NewProcessingService(
	cfg *config.Config,
	db *mongo.Database,
	storage *FileStorageManager,
	chk *chunker.Chunker,
	embedder *ai.EmbeddingClient,
	metrics *telemetry.Metrics,
) *ProcessingService {
	return &ProcessingService{
		cfg:       cfg,
		documents: db.Collection("documents"),
		chunks:    db.Collection("document_chunks"),
		crawls:    db.Collection("crawls"),
		db:        db,
		storage:   storage,
		registry:  ingest.NewRegistry(),
		fetcher:   &ingest.URLExtractor{},
		chunker:   chk,
		embedder:  embedder,
		metrics:   metrics,
	}
}

// ProcessDocument runs a staged upload through the full pipeline.
func (p *ProcessingService) ProcessDocument(ctx context.Context, tenantID, documentID string) error {
	doc, err := p.loadDocument(ctx, tenantID, documentID)
	if err != nil {
		return err
	}
	if err := p.updateStatus(ctx, doc.ID, models.StatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	data, err := p.storage.Read(doc.FilePath)
	if err != nil {
		p.updateStatus(ctx, doc.ID, models.StatusFailed, err.Error())
		return fmt.Errorf("failed to read staged file: %w", err)
	}

	result := ingest.Validate(data, doc.OriginalName, doc.MimeType, p.cfg.MaxFileSize)
	if vErr := result.Err(); vErr != nil {
		p.updateStatus(ctx, doc.ID, models.StatusRejected, vErr.Error())
		p.recordProcessed(string(result.DetectedType), models.StatusRejected, 0)
		return vErr
	}

	opts := doc.Options.ToIngest()
	start := time.Now()
	extracted, err := p.registry.Extract(ctx, data, result.DetectedType, opts)
	if p.metrics != nil {
		p.metrics.RecordExtraction(string(result.DetectedType), time.Since(start).Seconds(), err == nil)
	}
	if err != nil {
		p.updateStatus(ctx, doc.ID, models.StatusFailed, err.Error())
		p.recordProcessed(string(result.DetectedType), models.StatusFailed, 0)
		return err
	}

	return p.persistExtracted(ctx, doc, result.DetectedType, extracted, opts, time.Since(start))
}

// IngestURL fetches a URL and runs the result through the pipeline.
func (p *ProcessingService) IngestURL(ctx context.Context, tenantID, documentID, rawURL string) error {
	doc, err := p.loadDocument(ctx, tenantID, documentID)
	if err != nil {
		return err
	}
	if err := p.updateStatus(ctx, doc.ID, models.StatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	opts := doc.Options.ToIngest()
	if opts.MaxContentLength <= 0 || opts.MaxContentLength > p.cfg.MaxURLContentLength {
		opts.MaxContentLength = p.cfg.MaxURLContentLength
	}

	start := time.Now()
	extracted, err := p.fetcher.ExtractFromURL(ctx, rawURL, opts)
	if p.metrics != nil {
		p.metrics.RecordExtraction(string(ingest.FileTypeHTML), time.Since(start).Seconds(), err == nil)
	}
	if err != nil {
		var vErr *ingest.ValidationError
		status := models.StatusFailed
		if errors.As(err, &vErr) {
			status = models.StatusRejected
		}
		p.updateStatus(ctx, doc.ID, status, err.Error())
		p.recordProcessed(string(ingest.FileTypeHTML), status, 0)
		return err
	}

	return p.persistExtracted(ctx, doc, ingest.FileTypeHTML, extracted, opts, time.Since(start))
}

// CrawlSite fetches a site and ingests every content page as its own
// crawl-sourced document.
func (p *ProcessingService) CrawlSite(ctx context.Context, tenantID, crawlID string) error {
	oid, err := primitive.ObjectIDFromHex(crawlID)
	if err != nil {
		return fmt.Errorf("invalid crawl id %q", crawlID)
	}

	var job models.CrawlJob
	err = p.crawls.FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&job)
	if err != nil {
		return fmt.Errorf("load crawl %s: %w", crawlID, err)
	}

	p.updateCrawl(ctx, job.ID, bson.M{"status": models.CrawlStatusCrawling})

	result, err := crawler.Crawl(ctx, crawler.Config{
		URL:            job.URL,
		MaxPages:       orDefault(job.MaxPages, p.cfg.CrawlMaxPages),
		MaxDepth:       orDefault(job.MaxDepth, p.cfg.CrawlMaxDepth),
		AllowedDomains: job.AllowedDomains,
		AllowedPaths:   job.AllowedPaths,
		Delay:          p.cfg.CrawlRequestDelay,
		Timeout:        p.cfg.FetchTimeout,
		RenderJS:       job.RenderJS || p.cfg.CrawlJSRendering,
	})
	if err != nil {
		p.updateCrawl(ctx, job.ID, bson.M{
			"status": models.CrawlStatusFailed,
			"error":  err.Error(),
		})
		return fmt.Errorf("crawl %s: %w", job.URL, err)
	}

	opts := job.Options.ToIngest()
	var docIDs []primitive.ObjectID
	for _, page := range result.Pages {
		if page.StatusCode >= 300 {
			continue
		}
		if p.metrics != nil {
			p.metrics.RecordPageCrawled(hostOf(page.URL), page.Rendered)
		}

		id, err := p.ingestCrawledPage(ctx, &job, page, opts)
		if err != nil {
			logger.Warn("Skipping crawled page", "url", page.URL, "error", err)
			continue
		}
		if !id.IsZero() {
			docIDs = append(docIDs, id)
		}
	}

	now := time.Now()
	p.updateCrawl(ctx, job.ID, bson.M{
		"status":         models.CrawlStatusCompleted,
		"pages_crawled":  result.PagesCrawled,
		"pages_ingested": len(docIDs),
		"document_ids":   docIDs,
		"completed_at":   now,
	})

	logger.Info("Crawl completed", "crawl_id", crawlID, "pages_crawled", result.PagesCrawled, "pages_ingested", len(docIDs))
	return nil
}

// ingestCrawledPage stores one fetched page as a document. Pages whose
// content hash already exists for the tenant are skipped.
func (p *ProcessingService) ingestCrawledPage(ctx context.Context, job *models.CrawlJob, page crawler.Page, opts ingest.ProcessingOptions) (primitive.ObjectID, error) {
	sum := md5.Sum(page.HTML)
	contentHash := hex.EncodeToString(sum[:])

	count, err := p.documents.CountDocuments(ctx, bson.M{
		"tenant_id":    job.TenantID,
		"content_hash": contentHash,
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if count > 0 {
		return primitive.NilObjectID, nil
	}

	extracted, err := ingest.ExtractPage(ctx, page.HTML, page.URL, opts)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if extracted.Metadata.WordCount < 10 {
		// Navigation-only pages carry no retrievable content
		return primitive.NilObjectID, nil
	}

	now := time.Now()
	doc := &models.Document{
		ID:          primitive.NewObjectID(),
		TenantID:    job.TenantID,
		Source:      "crawl",
		SourceURL:   page.URL,
		ContentHash: contentHash,
		FileType:    ingest.FileTypeHTML,
		SizeBytes:   int64(len(page.HTML)),
		Status:      models.StatusProcessing,
		Options:     job.Options,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := p.documents.InsertOne(ctx, doc); err != nil {
		return primitive.NilObjectID, err
	}

	if err := p.persistExtracted(ctx, doc, ingest.FileTypeHTML, extracted, opts, 0); err != nil {
		return primitive.NilObjectID, err
	}
	return doc.ID, nil
}

// persistExtracted chunks the extracted document, replaces its stored
// chunks, embeds them best-effort, and marks the document completed.
func (p *ProcessingService) persistExtracted(ctx context.Context, doc *models.Document, fileType ingest.FileType, extracted *ingest.ExtractedDocument, opts ingest.ProcessingOptions, extractionTime time.Duration) error {
	chunks, err := p.chunker.Chunk(extracted, opts)
	if err != nil {
		p.updateStatus(ctx, doc.ID, models.StatusFailed, err.Error())
		p.recordProcessed(string(fileType), models.StatusFailed, 0)
		return err
	}

	// Rechunking replaces the previous chunk set atomically per document
	if _, err := p.chunks.DeleteMany(ctx, bson.M{"document_id": doc.ID}); err != nil {
		p.updateStatus(ctx, doc.ID, models.StatusFailed, err.Error())
		return fmt.Errorf("failed to clear previous chunks: %w", err)
	}

	totalTokens := 0
	now := time.Now()
	stored := make([]interface{}, 0, len(chunks))
	for _, ch := range chunks {
		totalTokens += ch.TokenCount
		stored = append(stored, models.StoredChunk{
			TenantID:   doc.TenantID,
			DocumentID: doc.ID,
			ChunkIndex: ch.Index,
			Content:    ch.Content,
			TokenCount: ch.TokenCount,
			Boundary:   ch.Type,
			HasOverlap: ch.HasOverlap,
			Heading:    ch.Heading,
			Level:      ch.Level,
			CreatedAt:  now,
		})
	}
	if len(stored) > 0 {
		if _, err := p.chunks.InsertMany(ctx, stored); err != nil {
			p.updateStatus(ctx, doc.ID, models.StatusFailed, err.Error())
			return fmt.Errorf("failed to store chunks: %w", err)
		}
	}

	p.embedChunks(ctx, doc, chunks, totalTokens)

	update := bson.M{
		"status":       models.StatusCompleted,
		"file_type":    fileType,
		"chunk_count":  len(chunks),
		"total_tokens": totalTokens,
		"updated_at":   now,
		"processed_at": now,
		"metadata": models.DocumentMetadata{
			Title:          extracted.Metadata.Title,
			Description:    extracted.Metadata.Description,
			Language:       extracted.Metadata.Language,
			WordCount:      extracted.Metadata.WordCount,
			CharCount:      extracted.Metadata.CharCount,
			PageCount:      extracted.Metadata.PageCount,
			Columns:        extracted.Metadata.Columns,
			QualityScore:   extracted.Metadata.QualityScore,
			LowConfidence:  extracted.Metadata.LowConfidence,
			ProcessingTime: extractionTime,
			Links:          extracted.Links,
		},
	}
	if _, err := p.documents.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": update}); err != nil {
		return fmt.Errorf("failed to finalize document: %w", err)
	}

	p.recordProcessed(string(fileType), models.StatusCompleted, int64(len(chunks)))
	logger.Info("Document processed",
		"document_id", doc.ID.Hex(),
		"tenant_id", doc.TenantID,
		"file_type", fileType,
		"chunks", len(chunks),
		"tokens", totalTokens,
		"low_confidence", extracted.Metadata.LowConfidence,
	)
	return nil
}

// embedChunks attaches vectors to stored chunks. Embedding failures never
// fail the document: chunks without vectors are still retrievable by text
// and can be backfilled.
func (p *ProcessingService) embedChunks(ctx context.Context, doc *models.Document, chunks []chunker.Chunk, totalTokens int) {
	if p.embedder == nil || len(chunks) == 0 {
		return
	}

	if err := ai.CheckTenantQuota(ctx, p.db, doc.TenantID, totalTokens, len(chunks)); err != nil {
		logger.Warn("Skipping embeddings", "tenant_id", doc.TenantID, "error", err)
		return
	}

	for _, ch := range chunks {
		vec, err := p.embedder.EmbedText(ctx, ch.Content)
		if err != nil {
			logger.Warn("Embedding failed", "document_id", doc.ID.Hex(), "chunk_index", ch.Index, "error", err)
			if errors.Is(err, ai.ErrEmbeddingsUnavailable) {
				return
			}
			continue
		}
		_, err = p.chunks.UpdateOne(ctx,
			bson.M{"document_id": doc.ID, "chunk_index": ch.Index},
			bson.M{"$set": bson.M{"vector": vec}},
		)
		if err != nil {
			logger.Warn("Failed to store vector", "document_id", doc.ID.Hex(), "chunk_index", ch.Index, "error", err)
		}
	}
}

func (p *ProcessingService) loadDocument(ctx context.Context, tenantID, documentID string) (*models.Document, error) {
	oid, err := primitive.ObjectIDFromHex(documentID)
	if err != nil {
		return nil, fmt.Errorf("invalid document id %q", documentID)
	}

	var doc models.Document
	err = p.documents.FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", documentID, err)
	}
	return &doc, nil
}

func (p *ProcessingService) updateStatus(ctx context.Context, docID primitive.ObjectID, status, errorMessage string) error {
	set := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMessage != "" {
		set["error_message"] = errorMessage
	}
	if status == models.StatusCompleted || status == models.StatusFailed || status == models.StatusRejected {
		set["processed_at"] = time.Now()
	}

	_, err := p.documents.UpdateOne(ctx, bson.M{"_id": docID}, bson.M{"$set": set})
	return err
}

func (p *ProcessingService) updateCrawl(ctx context.Context, crawlID primitive.ObjectID, set bson.M) {
	set["updated_at"] = time.Now()
	if _, err := p.crawls.UpdateOne(ctx, bson.M{"_id": crawlID}, bson.M{"$set": set}); err != nil {
		logger.Error("Failed to update crawl", "crawl_id", crawlID.Hex(), "error", err)
	}
}

func (p *ProcessingService) recordProcessed(fileType, status string, chunks int64) {
	if p.metrics != nil {
		p.metrics.RecordDocumentProcessed(fileType, status, chunks)
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
