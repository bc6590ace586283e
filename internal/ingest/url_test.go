package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLExtractorFetchesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Remote Page</title></head><body><p>Fetched content body.</p></body></html>`))
	}))
	defer srv.Close()

	e := &URLExtractor{Client: srv.Client()}
	doc, err := e.ExtractFromURL(context.Background(), srv.URL, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "Remote Page", doc.Metadata.Title)
	assert.Equal(t, srv.URL, doc.Metadata.SourceURL)
	assert.Contains(t, doc.Text, "Fetched content body.")
}

func TestURLExtractorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.Timeout = 50 * time.Millisecond

	e := &URLExtractor{Client: srv.Client()}
	_, err := e.ExtractFromURL(context.Background(), srv.URL, opts)

	var tErr *TimeoutError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, srv.URL, tErr.URL)
}

func TestURLExtractorRejectsInvalidURL(t *testing.T) {
	e := &URLExtractor{}
	for _, raw := range []string{"ftp://example.com/file", "not a url", ""} {
		_, err := e.ExtractFromURL(context.Background(), raw, DefaultOptions())

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "url %q", raw)
	}
}

func TestURLExtractorRejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	e := &URLExtractor{Client: srv.Client()}
	_, err := e.ExtractFromURL(context.Background(), srv.URL, DefaultOptions())

	var xErr *ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Contains(t, err.Error(), "content type")
}

func TestURLExtractorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	e := &URLExtractor{Client: srv.Client()}
	_, err := e.ExtractFromURL(context.Background(), srv.URL, DefaultOptions())

	var xErr *ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Contains(t, err.Error(), "404")
}

func TestURLExtractorContentTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>" + strings.Repeat("x", 4096) + "</p></body></html>"))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.MaxContentLength = 1024

	e := &URLExtractor{Client: srv.Client()}
	_, err := e.ExtractFromURL(context.Background(), srv.URL, opts)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reasons[0], "exceeds maximum length")
}

func TestURLExtractorTitleFallsBackToURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>No title here.</p></body></html>`))
	}))
	defer srv.Close()

	e := &URLExtractor{Client: srv.Client()}
	doc, err := e.ExtractFromURL(context.Background(), srv.URL, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, srv.URL, doc.Metadata.Title)
}
