package ingest

import "fmt"

// ValidationResult is the outcome of the pre-extraction gate.
type ValidationResult struct {
	IsValid      bool     `json:"is_valid"`
	DetectedType FileType `json:"detected_type"`
	Errors       []string `json:"errors,omitempty"`
}

// Err converts a failed result into a *ValidationError, nil otherwise.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{Reasons: r.Errors}
}

// Validate enforces size and type constraints before extraction is
// attempted. It is a pure function over the input bytes and metadata and
// never panics on malformed-but-present input. maxBytes <= 0 falls back to
// MaxUploadBytes.
func Validate(data []byte, filename, mimeType string, maxBytes int64) ValidationResult {
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}

	result := ValidationResult{DetectedType: FileTypeUnknown}

	if len(data) == 0 {
		result.Errors = append(result.Errors, "file is empty")
	} else if int64(len(data)) > maxBytes {
		result.Errors = append(result.Errors,
			fmt.Sprintf("file size %d exceeds maximum allowed size %d", len(data), maxBytes))
	}

	detected := Detect(data, filename, mimeType)
	result.DetectedType = detected
	if detected == FileTypeUnknown {
		result.Errors = append(result.Errors,
			fmt.Sprintf("unsupported file type (name=%q, mime=%q)", filename, mimeType))
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
