package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Kanishk2004/plug-rag-sub002/internal/ingest"
	"github.com/Kanishk2004/plug-rag-sub002/internal/logger"
)

const (
	TaskProcessDocument = "document:process"
	TaskIngestURL       = "url:ingest"
	TaskCrawlSite       = "crawl:site"
)

type DocumentProcessPayload struct {
	TenantID   string `json:"tenant_id"`
	DocumentID string `json:"document_id"`
}

type URLIngestPayload struct {
	TenantID   string `json:"tenant_id"`
	DocumentID string `json:"document_id"`
	URL        string `json:"url"`
}

type CrawlSitePayload struct {
	TenantID string `json:"tenant_id"`
	CrawlID  string `json:"crawl_id"`
}

// Task creators
func NewDocumentProcessTask(tenantID, documentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentProcessPayload{
		TenantID:   tenantID,
		DocumentID: documentID,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

func NewURLIngestTask(tenantID, documentID, url string) (*asynq.Task, error) {
	payload, err := json.Marshal(URLIngestPayload{
		TenantID:   tenantID,
		DocumentID: documentID,
		URL:        url,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestURL,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("default"),
	), nil
}

func NewCrawlSiteTask(tenantID, crawlID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CrawlSitePayload{
		TenantID: tenantID,
		CrawlID:  crawlID,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskCrawlSite,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("low"),
	), nil
}

// Pipeline is the ingestion entry point the worker drives. Implemented by
// services.ProcessingService; declared here so the queue package does not
// depend on the service wiring.
type Pipeline interface {
	ProcessDocument(ctx context.Context, tenantID, documentID string) error
	IngestURL(ctx context.Context, tenantID, documentID, url string) error
	CrawlSite(ctx context.Context, tenantID, crawlID string) error
}

// TaskProcessor adapts asynq task payloads onto the ingestion pipeline.
type TaskProcessor struct {
	pipeline Pipeline
}

func NewTaskProcessor(pipeline Pipeline) *TaskProcessor {
	return &TaskProcessor{pipeline: pipeline}
}

func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskProcessDocument, p.HandleProcessDocument)
	mux.HandleFunc(TaskIngestURL, p.HandleIngestURL)
	mux.HandleFunc(TaskCrawlSite, p.HandleCrawlSite)
}

func (p *TaskProcessor) HandleProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing document", "tenant_id", payload.TenantID, "document_id", payload.DocumentID)

	err := p.pipeline.ProcessDocument(ctx, payload.TenantID, payload.DocumentID)
	return classify(err)
}

func (p *TaskProcessor) HandleIngestURL(ctx context.Context, t *asynq.Task) error {
	var payload URLIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Ingesting URL", "tenant_id", payload.TenantID, "url", payload.URL)

	err := p.pipeline.IngestURL(ctx, payload.TenantID, payload.DocumentID, payload.URL)
	return classify(err)
}

func (p *TaskProcessor) HandleCrawlSite(ctx context.Context, t *asynq.Task) error {
	var payload CrawlSitePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Crawling site", "tenant_id", payload.TenantID, "crawl_id", payload.CrawlID)

	return classify(p.pipeline.CrawlSite(ctx, payload.TenantID, payload.CrawlID))
}

// classify maps deterministic pipeline failures to SkipRetry; a rejected or
// unparseable document will not get better on a second attempt. Timeouts and
// infrastructure errors stay retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var vErr *ingest.ValidationError
	var eErr *ingest.ExtractionError
	if errors.As(err, &vErr) || errors.As(err, &eErr) {
		logger.Warn("Dropping unretryable task", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}
