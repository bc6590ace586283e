package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectByMIMEType(t *testing.T) {
	cases := map[string]FileType{
		"application/pdf":           FileTypePDF,
		"application/pdf; name=x":   FileTypePDF,
		"text/html; charset=utf-8":  FileTypeHTML,
		"text/markdown":             FileTypeMarkdown,
		"TEXT/CSV":                  FileTypeCSV,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FileTypeDOCX,
	}
	for mime, want := range cases {
		assert.Equal(t, want, Detect(nil, "", mime), "mime %q", mime)
	}
}

func TestDetectByExtension(t *testing.T) {
	assert.Equal(t, FileTypeTXT, Detect(nil, "notes.txt", ""))
	assert.Equal(t, FileTypeMarkdown, Detect(nil, "README.md", ""))
	assert.Equal(t, FileTypeCSV, Detect(nil, "data.CSV", ""))
	assert.Equal(t, FileTypeHTML, Detect(nil, "index.htm", ""))

	// A generic MIME type defers to the extension
	assert.Equal(t, FileTypePDF, Detect(nil, "report.pdf", "application/octet-stream"))
}

func TestDetectBySniffing(t *testing.T) {
	pdfBytes := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	assert.Equal(t, FileTypePDF, Detect(pdfBytes, "", ""))
}

func TestDetectUnknown(t *testing.T) {
	assert.Equal(t, FileTypeUnknown, Detect([]byte{0x00, 0x01, 0x02, 0x03}, "blob.bin", ""))
	assert.Equal(t, FileTypeUnknown, Detect(nil, "", ""))
}

func TestValidateAcceptsKnownType(t *testing.T) {
	result := Validate([]byte("hello world"), "notes.txt", "text/plain", 1024)

	assert.True(t, result.IsValid)
	assert.Equal(t, FileTypeTXT, result.DetectedType)
	assert.NoError(t, result.Err())
}

func TestValidateRejectsEmptyFile(t *testing.T) {
	result := Validate(nil, "notes.txt", "text/plain", 1024)

	assert.False(t, result.IsValid)

	var vErr *ValidationError
	require.ErrorAs(t, result.Err(), &vErr)
	assert.Contains(t, vErr.Reasons[0], "empty")
}

func TestValidateRejectsOversizedFile(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = 'a'
	}
	result := Validate(data, "notes.txt", "text/plain", 10)

	assert.False(t, result.IsValid)
	assert.Error(t, result.Err())
}

func TestValidateRejectsUnknownType(t *testing.T) {
	result := Validate([]byte{0x00, 0x01}, "blob.bin", "", 1024)

	assert.False(t, result.IsValid)
	assert.Equal(t, FileTypeUnknown, result.DetectedType)

	var vErr *ValidationError
	require.ErrorAs(t, result.Err(), &vErr)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	// Oversized AND unknown type: both reasons reported in one pass
	data := make([]byte, 20)
	result := Validate(data, "blob.bin", "", 10)

	require.False(t, result.IsValid)
	assert.Len(t, result.Errors, 2)
}
