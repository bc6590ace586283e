package ingest

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports malformed, oversized or unsupported input detected
// before any extraction work begins. Always recoverable by the caller.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// ExtractionError reports a format parser failure on otherwise valid input.
// It carries the detected type and the underlying cause.
type ExtractionError struct {
	Type FileType
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Type, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TimeoutError reports a URL fetch exceeding the configured timeout. It is
// distinct from a generic network failure so callers can offer a retry.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("fetch of %s timed out after %s", e.URL, e.Timeout)
}
