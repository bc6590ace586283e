package ingest

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var mimeToType = map[string]FileType{
	"application/pdf": FileTypePDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FileTypeDOCX,
	"application/msword": FileTypeDOCX,
	"text/plain":         FileTypeTXT,
	"text/markdown":      FileTypeMarkdown,
	"text/csv":           FileTypeCSV,
	"application/csv":    FileTypeCSV,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FileTypeXLSX,
	"application/vnd.ms-excel": FileTypeXLSX,
	"text/html":                FileTypeHTML,
	"application/xhtml+xml":    FileTypeHTML,
}

var extToType = map[string]FileType{
	".pdf":      FileTypePDF,
	".docx":     FileTypeDOCX,
	".txt":      FileTypeTXT,
	".text":     FileTypeTXT,
	".md":       FileTypeMarkdown,
	".markdown": FileTypeMarkdown,
	".csv":      FileTypeCSV,
	".xlsx":     FileTypeXLSX,
	".html":     FileTypeHTML,
	".htm":      FileTypeHTML,
}

// Detect classifies input into a known document type. The declared MIME type
// is the primary signal; content sniffing and extension inference are used
// when it is absent or generic. Unknown combinations return FileTypeUnknown
// rather than a guess, so the extractor can fail fast with a clear error.
func Detect(data []byte, filename, mimeType string) FileType {
	if t, ok := lookupMIME(mimeType); ok {
		return t
	}

	// Sniffed types distinguish binary formats reliably; plain-text formats
	// (csv, md) usually sniff as text/plain, so prefer the extension for
	// those.
	if t, ok := extToType[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}

	if len(data) > 0 {
		sniffed := mimetype.Detect(data)
		for mime := sniffed; mime != nil; mime = mime.Parent() {
			if t, ok := lookupMIME(mime.String()); ok {
				return t
			}
		}
	}

	return FileTypeUnknown
}

func lookupMIME(mimeType string) (FileType, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		return FileTypeUnknown, false
	}
	t, ok := mimeToType[mimeType]
	return t, ok
}
