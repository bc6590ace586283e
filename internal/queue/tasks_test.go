package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kanishk2004/plug-rag-sub002/internal/ingest"
)

type fakePipeline struct {
	processErr error
	calls      []string
}

func (f *fakePipeline) ProcessDocument(ctx context.Context, tenantID, documentID string) error {
	f.calls = append(f.calls, "process:"+tenantID+":"+documentID)
	return f.processErr
}

func (f *fakePipeline) IngestURL(ctx context.Context, tenantID, documentID, url string) error {
	f.calls = append(f.calls, "url:"+url)
	return f.processErr
}

func (f *fakePipeline) CrawlSite(ctx context.Context, tenantID, crawlID string) error {
	f.calls = append(f.calls, "crawl:"+crawlID)
	return f.processErr
}

func TestNewDocumentProcessTaskPayload(t *testing.T) {
	task, err := NewDocumentProcessTask("tenant-1", "doc-1")
	require.NoError(t, err)

	assert.Equal(t, TaskProcessDocument, task.Type())

	var payload DocumentProcessPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "tenant-1", payload.TenantID)
	assert.Equal(t, "doc-1", payload.DocumentID)
}

func TestHandleProcessDocumentInvokesPipeline(t *testing.T) {
	fake := &fakePipeline{}
	proc := NewTaskProcessor(fake)

	task, err := NewDocumentProcessTask("tenant-1", "doc-1")
	require.NoError(t, err)

	require.NoError(t, proc.HandleProcessDocument(context.Background(), task))
	assert.Equal(t, []string{"process:tenant-1:doc-1"}, fake.calls)
}

func TestHandleProcessDocumentSkipsRetryOnValidation(t *testing.T) {
	fake := &fakePipeline{processErr: &ingest.ValidationError{Reasons: []string{"file is empty"}}}
	proc := NewTaskProcessor(fake)

	task, err := NewDocumentProcessTask("tenant-1", "doc-1")
	require.NoError(t, err)

	err = proc.HandleProcessDocument(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleProcessDocumentRetriesInfraErrors(t *testing.T) {
	fake := &fakePipeline{processErr: errors.New("mongo: connection reset")}
	proc := NewTaskProcessor(fake)

	task, err := NewDocumentProcessTask("tenant-1", "doc-1")
	require.NoError(t, err)

	err = proc.HandleProcessDocument(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleIngestURLBadPayload(t *testing.T) {
	proc := NewTaskProcessor(&fakePipeline{})
	task := asynq.NewTask(TaskIngestURL, []byte("{not json"))

	err := proc.HandleIngestURL(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	wrapped := fmt.Errorf("extract: %w", &ingest.ExtractionError{Type: ingest.FileTypePDF, Err: errors.New("bad xref")})
	assert.ErrorIs(t, classify(wrapped), asynq.SkipRetry)

	timeout := &ingest.TimeoutError{URL: "https://example.com"}
	assert.NotErrorIs(t, classify(timeout), asynq.SkipRetry)
}
