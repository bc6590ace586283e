package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExtractor treats worksheet rows as record blocks, one sheet after
// another, with the first non-empty row of each sheet as column metadata.
// Sheet names become level-1 headings.
type XLSXExtractor struct{}

func (e *XLSXExtractor) Extract(ctx context.Context, data []byte, opts ProcessingOptions) (*ExtractedDocument, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ExtractionError{Type: FileTypeXLSX, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer file.Close()

	builder := &docBuilder{}
	var columns []string
	nonEmptySheets := 0

	for _, sheet := range file.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := file.GetRows(sheet)
		if err != nil {
			return nil, &ExtractionError{Type: FileTypeXLSX, Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
		}
		if len(rows) == 0 {
			continue
		}
		nonEmptySheets++

		builder.addHeading(sheet, 1)

		var sheetColumns []string
		for i, row := range rows {
			if isEmptyRow(row) {
				continue
			}
			if sheetColumns == nil && looksLikeHeader(row) {
				sheetColumns = append([]string(nil), row...)
				if columns == nil {
					columns = sheetColumns
				}
				continue
			}
			builder.addBlock(MarkerRecord, fmt.Sprintf("%s row %d", sheet, i+1), 0, formatRecord(sheetColumns, row))
		}
	}

	meta := Metadata{Columns: columns, PageCount: nonEmptySheets}
	doc := builder.build(meta, nil)
	if nonEmptySheets == 0 {
		doc.Metadata.LowConfidence = true
	}
	return doc, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
