package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestXLSXExtractorHeaderAndRecords(t *testing.T) {
	data := buildWorkbook(t, "People", [][]interface{}{
		{"name", "age", "city"},
		{"Alice", 30, "Berlin"},
		{"Bob", 25, "Lisbon"},
	})

	doc, err := (&XLSXExtractor{}).Extract(context.Background(), data, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "city"}, doc.Metadata.Columns)
	assert.Equal(t, 1, doc.Metadata.PageCount)
	assert.False(t, doc.Metadata.LowConfidence)

	require.Len(t, doc.Structure, 3)
	assert.Equal(t, MarkerHeading, doc.Structure[0].Kind)
	assert.Equal(t, "People", doc.Structure[0].Label)
	assert.Equal(t, 1, doc.Structure[0].Level)

	rec := doc.Structure[1]
	assert.Equal(t, MarkerRecord, rec.Kind)
	assert.Equal(t, "People row 2", rec.Label)
	assert.Equal(t, "name: Alice, age: 30, city: Berlin", doc.Text[rec.Start:rec.End])
}

func TestXLSXExtractorNumericFirstRow(t *testing.T) {
	// A numeric first row is data, not a header
	data := buildWorkbook(t, "Numbers", [][]interface{}{
		{1, 2},
		{3, 4},
	})

	doc, err := (&XLSXExtractor{}).Extract(context.Background(), data, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, doc.Metadata.Columns)
	require.Len(t, doc.Structure, 3)
	rec := doc.Structure[1]
	assert.Equal(t, MarkerRecord, rec.Kind)
	assert.Equal(t, "1, 2", doc.Text[rec.Start:rec.End])
}

func TestXLSXExtractorEmptyWorkbookLowConfidence(t *testing.T) {
	data := buildWorkbook(t, "Empty", nil)

	doc, err := (&XLSXExtractor{}).Extract(context.Background(), data, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, doc.Text)
	assert.Zero(t, doc.Metadata.PageCount)
	assert.True(t, doc.Metadata.LowConfidence)
}

func TestXLSXExtractorNotAWorkbook(t *testing.T) {
	_, err := (&XLSXExtractor{}).Extract(context.Background(), []byte("plainly not a zip archive"), DefaultOptions())

	var xErr *ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Equal(t, FileTypeXLSX, xErr.Type)
}
