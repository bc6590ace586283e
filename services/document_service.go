package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Kanishk2004/plug-rag-sub002/internal/config"
	"github.com/Kanishk2004/plug-rag-sub002/internal/ingest"
	"github.com/Kanishk2004/plug-rag-sub002/internal/logger"
	"github.com/Kanishk2004/plug-rag-sub002/internal/queue"
	"github.com/Kanishk2004/plug-rag-sub002/models"
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentService owns the document lifecycle: submission, duplicate
// detection, dispatch to the pipeline, and retrieval.
type DocumentService struct {
	cfg       *config.Config
	documents *mongo.Collection
	chunks    *mongo.Collection
	crawls    *mongo.Collection
	storage   *FileStorageManager
	queue     *asynq.Client
	pipeline  queue.Pipeline
}

func NewDocumentService(cfg *config.Config, db *mongo.Database, storage *FileStorageManager, queueClient *asynq.Client, pipeline queue.Pipeline) *DocumentService {
	return &DocumentService{
		cfg:       cfg,
		documents: db.Collection("documents"),
		chunks:    db.Collection("document_chunks"),
		crawls:    db.Collection("crawls"),
		storage:   storage,
		queue:     queueClient,
		pipeline:  pipeline,
	}
}

// UploadRequest is a validated multipart submission.
type UploadRequest struct {
	File     multipart.File
	Header   *multipart.FileHeader
	TenantID string
	Options  models.ProcessingOptions
}

// SubmitUpload stages an uploaded file, rejects duplicates by content hash,
// and dispatches processing. Files under the sync limit are processed
// before returning; larger ones go through the queue.
func (s *DocumentService) SubmitUpload(ctx context.Context, req *UploadRequest) (*models.UploadResponse, error) {
	header := req.Header
	if header.Size <= 0 {
		return nil, &ingest.ValidationError{Reasons: []string{"file is empty"}}
	}
	if header.Size > s.cfg.MaxFileSize {
		return nil, &ingest.ValidationError{Reasons: []string{
			fmt.Sprintf("file size %d exceeds maximum allowed size %d", header.Size, s.cfg.MaxFileSize),
		}}
	}

	fileInfo, err := s.storage.Store(req.File, header, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("file storage failed: %w", err)
	}

	existing, err := s.findDuplicate(ctx, req.TenantID, fileInfo.Hash)
	if err != nil {
		s.storage.Cleanup(fileInfo.Path)
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if existing != nil {
		s.storage.Cleanup(fileInfo.Path)
		return &models.UploadResponse{
			ID:         existing.ID.Hex(),
			Filename:   existing.OriginalName,
			Status:     existing.Status,
			ChunkCount: existing.ChunkCount,
			Metadata:   existing.Metadata,
			Duplicate:  true,
			Message:    "document with identical content already exists",
		}, nil
	}

	now := time.Now()
	doc := &models.Document{
		ID:           primitive.NewObjectID(),
		TenantID:     req.TenantID,
		Source:       "upload",
		Filename:     fileInfo.SecureName,
		OriginalName: header.Filename,
		FilePath:     fileInfo.Path,
		ContentHash:  fileInfo.Hash,
		MimeType:     header.Header.Get("Content-Type"),
		SizeBytes:    fileInfo.Size,
		Status:       models.StatusPending,
		Options:      req.Options,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.documents.InsertOne(ctx, doc); err != nil {
		s.storage.Cleanup(fileInfo.Path)
		return nil, fmt.Errorf("database save failed: %w", err)
	}

	if fileInfo.Size <= s.cfg.SyncProcessingLimit {
		if err := s.pipeline.ProcessDocument(ctx, req.TenantID, doc.ID.Hex()); err != nil {
			var vErr *ingest.ValidationError
			if errors.As(err, &vErr) {
				return nil, vErr
			}
			return nil, fmt.Errorf("processing failed: %w", err)
		}
		processed, err := s.GetDocument(ctx, req.TenantID, doc.ID.Hex())
		if err != nil {
			return nil, err
		}
		return &models.UploadResponse{
			ID:         processed.ID.Hex(),
			Filename:   processed.OriginalName,
			Status:     processed.Status,
			ChunkCount: processed.ChunkCount,
			Metadata:   processed.Metadata,
			Message:    "document processed",
		}, nil
	}

	if err := s.enqueueDocument(ctx, req.TenantID, doc.ID.Hex()); err != nil {
		logger.Error("Failed to enqueue document", "document_id", doc.ID.Hex(), "error", err)
		return nil, fmt.Errorf("failed to enqueue processing: %w", err)
	}

	return &models.UploadResponse{
		ID:       doc.ID.Hex(),
		Filename: doc.OriginalName,
		Status:   models.StatusPending,
		Message:  "document accepted for processing",
	}, nil
}

// SubmitURL registers a URL document and queues the fetch.
func (s *DocumentService) SubmitURL(ctx context.Context, tenantID, rawURL string, opts models.ProcessingOptions) (*models.UploadResponse, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &ingest.ValidationError{Reasons: []string{"url must use http or https scheme"}}
	}

	now := time.Now()
	doc := &models.Document{
		ID:        primitive.NewObjectID(),
		TenantID:  tenantID,
		Source:    "url",
		SourceURL: rawURL,
		FileType:  ingest.FileTypeHTML,
		Status:    models.StatusPending,
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.documents.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("database save failed: %w", err)
	}

	task, err := queue.NewURLIngestTask(tenantID, doc.ID.Hex(), rawURL)
	if err != nil {
		return nil, err
	}
	if _, err := s.queue.EnqueueContext(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to enqueue url ingestion: %w", err)
	}

	return &models.UploadResponse{
		ID:        doc.ID.Hex(),
		SourceURL: rawURL,
		Status:    models.StatusPending,
		Message:   "url accepted for ingestion",
	}, nil
}

// Rechunk replays processing with new chunking options. Uploads re-read the
// staged file; URL documents are fetched again.
func (s *DocumentService) Rechunk(ctx context.Context, tenantID, documentID string, opts models.ProcessingOptions) (*models.Document, error) {
	doc, err := s.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == models.StatusProcessing {
		return nil, fmt.Errorf("document %s is currently processing", documentID)
	}

	_, err = s.documents.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "tenant_id": tenantID},
		bson.M{"$set": bson.M{
			"options":    opts,
			"status":     models.StatusPending,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return nil, err
	}

	if doc.Source == "url" || doc.Source == "crawl" {
		task, err := queue.NewURLIngestTask(tenantID, documentID, doc.SourceURL)
		if err != nil {
			return nil, err
		}
		if _, err := s.queue.EnqueueContext(ctx, task); err != nil {
			return nil, fmt.Errorf("failed to enqueue rechunk: %w", err)
		}
	} else {
		if err := s.enqueueDocument(ctx, tenantID, documentID); err != nil {
			return nil, fmt.Errorf("failed to enqueue rechunk: %w", err)
		}
	}

	return s.GetDocument(ctx, tenantID, documentID)
}

// StartCrawl registers a crawl job and queues it.
func (s *DocumentService) StartCrawl(ctx context.Context, job *models.CrawlJob) (*models.CrawlJob, error) {
	parsed, err := url.Parse(job.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &ingest.ValidationError{Reasons: []string{"url must use http or https scheme"}}
	}

	now := time.Now()
	job.ID = primitive.NewObjectID()
	job.Status = models.CrawlStatusPending
	job.CreatedAt = now
	job.UpdatedAt = now

	if _, err := s.crawls.InsertOne(ctx, job); err != nil {
		return nil, fmt.Errorf("database save failed: %w", err)
	}

	task, err := queue.NewCrawlSiteTask(job.TenantID, job.ID.Hex())
	if err != nil {
		return nil, err
	}
	if _, err := s.queue.EnqueueContext(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to enqueue crawl: %w", err)
	}

	return job, nil
}

// GetCrawl returns one crawl job scoped to the tenant.
func (s *DocumentService) GetCrawl(ctx context.Context, tenantID, crawlID string) (*models.CrawlJob, error) {
	oid, err := primitive.ObjectIDFromHex(crawlID)
	if err != nil {
		return nil, ErrDocumentNotFound
	}

	var job models.CrawlJob
	err = s.crawls.FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetDocument returns one document scoped to the tenant.
func (s *DocumentService) GetDocument(ctx context.Context, tenantID, documentID string) (*models.Document, error) {
	oid, err := primitive.ObjectIDFromHex(documentID)
	if err != nil {
		return nil, ErrDocumentNotFound
	}

	var doc models.Document
	err = s.documents.FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns the tenant's documents, newest first.
func (s *DocumentService) ListDocuments(ctx context.Context, tenantID string, limit, offset int64) ([]models.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	cursor, err := s.documents.Find(ctx,
		bson.M{"tenant_id": tenantID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit).
			SetSkip(offset),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// ListChunks returns a document's chunks in index order.
func (s *DocumentService) ListChunks(ctx context.Context, tenantID, documentID string, limit, offset int64) ([]models.StoredChunk, error) {
	doc, err := s.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	cursor, err := s.chunks.Find(ctx,
		bson.M{"document_id": doc.ID, "tenant_id": tenantID},
		options.Find().
			SetSort(bson.D{{Key: "chunk_index", Value: 1}}).
			SetLimit(limit).
			SetSkip(offset),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chunks []models.StoredChunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// DeleteDocument removes a document, its chunks, and any staged file.
func (s *DocumentService) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	doc, err := s.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		return err
	}

	if _, err := s.chunks.DeleteMany(ctx, bson.M{"document_id": doc.ID, "tenant_id": tenantID}); err != nil {
		return err
	}
	if _, err := s.documents.DeleteOne(ctx, bson.M{"_id": doc.ID, "tenant_id": tenantID}); err != nil {
		return err
	}
	s.storage.Cleanup(doc.FilePath)
	return nil
}

func (s *DocumentService) findDuplicate(ctx context.Context, tenantID, contentHash string) (*models.Document, error) {
	var existing models.Document
	err := s.documents.FindOne(ctx, bson.M{
		"tenant_id":    tenantID,
		"content_hash": contentHash,
		"status":       bson.M{"$in": []string{models.StatusCompleted, models.StatusProcessing, models.StatusPending}},
	}).Decode(&existing)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

func (s *DocumentService) enqueueDocument(ctx context.Context, tenantID, documentID string) error {
	task, err := queue.NewDocumentProcessTask(tenantID, documentID)
	if err != nil {
		return err
	}
	_, err = s.queue.EnqueueContext(ctx, task)
	return err
}
