package ingest

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMinimalPDF assembles a one-page PDF by hand, computing the xref
// offsets at write time so the file stays valid as the objects change.
func buildMinimalPDF(t *testing.T) []byte {
	t.Helper()

	stream := "BT /F1 12 Tf 72 720 Td (Hi) Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// A page yielding almost no text is a flagged success: the document comes
// back with its page marker and the low-confidence bit set, not an error.
func TestPDFExtractorSparsePageLowConfidence(t *testing.T) {
	doc, err := (&PDFExtractor{}).Extract(context.Background(), buildMinimalPDF(t), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Metadata.PageCount)
	assert.True(t, doc.Metadata.LowConfidence)
	require.Len(t, doc.Structure, 1)
	assert.Equal(t, MarkerPage, doc.Structure[0].Kind)
	assert.Equal(t, "page 1", doc.Structure[0].Label)
}

func TestPDFExtractorMalformedInput(t *testing.T) {
	_, err := (&PDFExtractor{}).Extract(context.Background(), []byte("%PDF-1.4 truncated garbage"), DefaultOptions())

	var xErr *ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Equal(t, FileTypePDF, xErr.Type)
}

func TestPDFExtractorEmptyInput(t *testing.T) {
	_, err := (&PDFExtractor{}).Extract(context.Background(), nil, DefaultOptions())

	var xErr *ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Equal(t, FileTypePDF, xErr.Type)
}
