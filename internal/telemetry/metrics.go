package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	DocumentsProcessed  metric.Int64Counter
	ChunksCreated       metric.Int64Counter
	ExtractionDuration  metric.Float64Histogram
	EmbeddingTokens     metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	PagesCrawled        metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("plugrag-ingestion")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	documentsProcessed, err := meter.Int64Counter(
		"ingest.documents.processed",
		metric.WithDescription("Documents run through the ingestion pipeline"),
	)
	if err != nil {
		return nil, err
	}

	chunksCreated, err := meter.Int64Counter(
		"ingest.chunks.created",
		metric.WithDescription("Chunks produced by the chunker"),
	)
	if err != nil {
		return nil, err
	}

	extractionDuration, err := meter.Float64Histogram(
		"ingest.extraction.duration",
		metric.WithDescription("Text extraction duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	embeddingTokens, err := meter.Int64Counter(
		"embeddings.tokens.used",
		metric.WithDescription("Tokens sent to the embeddings API"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	pagesCrawled, err := meter.Int64Counter(
		"crawl.pages.fetched",
		metric.WithDescription("Pages fetched during site crawls"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		DocumentsProcessed:  documentsProcessed,
		ChunksCreated:       chunksCreated,
		ExtractionDuration:  extractionDuration,
		EmbeddingTokens:     embeddingTokens,
		CircuitBreakerState: circuitBreakerState,
		PagesCrawled:        pagesCrawled,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordDocumentProcessed records a completed (or failed) pipeline run
func (m *Metrics) RecordDocumentProcessed(fileType, status string, chunks int64) {
	attrs := []attribute.KeyValue{
		attribute.String("ingest.file_type", fileType),
		attribute.String("ingest.status", status),
	}

	m.DocumentsProcessed.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	if chunks > 0 {
		m.ChunksCreated.Add(context.Background(), chunks, metric.WithAttributes(attrs...))
	}
}

// RecordExtraction records extractor timing per file type
func (m *Metrics) RecordExtraction(fileType string, duration float64, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("ingest.file_type", fileType),
		attribute.Bool("ingest.success", success),
	}

	m.ExtractionDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordEmbeddingTokens records embedding API token usage
func (m *Metrics) RecordEmbeddingTokens(tokens int64, model string) {
	attrs := []attribute.KeyValue{
		attribute.String("embeddings.model", model),
	}

	m.EmbeddingTokens.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordPageCrawled records one fetched page for a crawl job
func (m *Metrics) RecordPageCrawled(host string, rendered bool) {
	attrs := []attribute.KeyValue{
		attribute.String("crawl.host", host),
		attribute.Bool("crawl.rendered", rendered),
	}

	m.PagesCrawled.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
