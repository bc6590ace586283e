package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

const fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// URLExtractor fetches a web page within the configured timeout and byte
// ceiling and runs it through the HTML strategy. A nil Client uses
// http.DefaultClient; injecting the client keeps the core testable.
type URLExtractor struct {
	Client *http.Client
}

// ExtractFromURL fetches rawURL and extracts it as HTML. The fetch honors
// opts.Timeout (surfacing *TimeoutError) and opts.MaxContentLength
// (surfacing a *ValidationError instead of silently truncating).
func (e *URLExtractor) ExtractFromURL(ctx context.Context, rawURL string, opts ProcessingOptions) (*ExtractedDocument, error) {
	opts = opts.Normalized()

	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &ValidationError{Reasons: []string{fmt.Sprintf("invalid URL %q", rawURL)}}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, &ValidationError{Reasons: []string{fmt.Sprintf("invalid URL %q: %v", rawURL, err)}}
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err, fetchCtx) {
			return nil, &TimeoutError{URL: rawURL, Timeout: opts.Timeout}
		}
		return nil, &ExtractionError{Type: FileTypeHTML, Err: fmt.Errorf("fetch %s: %w", rawURL, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ExtractionError{Type: FileTypeHTML, Err: fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml+xml") {
		return nil, &ExtractionError{Type: FileTypeHTML, Err: fmt.Errorf("fetch %s: unsupported content type %q", rawURL, contentType)}
	}

	var body io.Reader = resp.Body
	// gzip is decoded by the transport; brotli is not.
	if strings.Contains(resp.Header.Get("Content-Encoding"), "br") {
		body = brotli.NewReader(body)
	}

	// Read one byte past the ceiling so oversized content is detected
	// rather than silently truncated.
	data, err := io.ReadAll(io.LimitReader(body, opts.MaxContentLength+1))
	if err != nil {
		if isTimeout(err, fetchCtx) {
			return nil, &TimeoutError{URL: rawURL, Timeout: opts.Timeout}
		}
		return nil, &ExtractionError{Type: FileTypeHTML, Err: fmt.Errorf("read %s: %w", rawURL, err)}
	}
	if int64(len(data)) > opts.MaxContentLength {
		return nil, &ValidationError{Reasons: []string{
			fmt.Sprintf("content from %s exceeds maximum length %d", rawURL, opts.MaxContentLength),
		}}
	}

	// Decode to UTF-8 using the declared charset, falling back to the raw
	// bytes when detection fails.
	if utf8Reader, cerr := charset.NewReader(bytes.NewReader(data), contentType); cerr == nil {
		if decoded, rerr := io.ReadAll(utf8Reader); rerr == nil && len(decoded) > 0 {
			data = decoded
		}
	}

	doc, err := extractHTML(ctx, data, opts, parsed.String())
	if err != nil {
		return nil, err
	}
	if doc.Metadata.Title == "" {
		doc.Metadata.Title = parsed.String()
	}
	return doc, nil
}

func isTimeout(err error, ctx context.Context) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
