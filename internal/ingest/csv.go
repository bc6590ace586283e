package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVExtractor turns each row into a structural record block. The header row
// is retained as column metadata so downstream chunks keep their context.
type CSVExtractor struct{}

func (e *CSVExtractor) Extract(ctx context.Context, data []byte, opts ProcessingOptions) (*ExtractedDocument, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	builder := &docBuilder{}
	var columns []string
	row := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ExtractionError{Type: FileTypeCSV, Err: fmt.Errorf("parse csv row %d: %w", row+1, err)}
		}
		row++

		if row == 1 && looksLikeHeader(record) {
			columns = append([]string(nil), record...)
			continue
		}
		builder.addBlock(MarkerRecord, fmt.Sprintf("row %d", row), 0, formatRecord(columns, record))
	}

	return builder.build(Metadata{Columns: columns}, nil), nil
}

// formatRecord renders one row as "column: value" pairs when a header is
// known, otherwise as a comma-joined line.
func formatRecord(columns, record []string) string {
	if len(columns) == 0 {
		return strings.Join(record, ", ")
	}
	parts := make([]string, 0, len(record))
	for i, value := range record {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if i < len(columns) && strings.TrimSpace(columns[i]) != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", strings.TrimSpace(columns[i]), value))
		} else {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, ", ")
}

// looksLikeHeader is a heuristic: a first row with no empty cells and no
// purely numeric cells is treated as a header.
func looksLikeHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	for _, cell := range record {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			return false
		}
		if isNumeric(cell) {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot:
			dot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			return false
		}
	}
	return len(s) > 0
}
