package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DOCXExtractor extracts paragraph-level text from word/document.xml,
// promoting Heading1..Heading9 paragraph styles to structural headings.
type DOCXExtractor struct{}

func (e *DOCXExtractor) Extract(ctx context.Context, data []byte, opts ProcessingOptions) (*ExtractedDocument, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{Type: FileTypeDOCX, Err: fmt.Errorf("open docx archive: %w", err)}
	}

	var docFile *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, &ExtractionError{Type: FileTypeDOCX, Err: fmt.Errorf("word/document.xml not found")}
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, &ExtractionError{Type: FileTypeDOCX, Err: fmt.Errorf("open document.xml: %w", err)}
	}
	defer rc.Close()

	builder := &docBuilder{}
	if err := parseDocxParagraphs(ctx, rc, builder); err != nil {
		return nil, &ExtractionError{Type: FileTypeDOCX, Err: err}
	}

	return builder.build(Metadata{}, nil), nil
}

// parseDocxParagraphs walks the WordprocessingML token stream, collecting
// run text per paragraph and the paragraph style when one is declared.
func parseDocxParagraphs(ctx context.Context, r io.Reader, builder *docBuilder) error {
	decoder := xml.NewDecoder(r)

	var (
		paragraph strings.Builder
		inPara    bool
		inText    bool
		style     string
	)

	flush := func() {
		text := paragraph.String()
		if level := headingLevelFromStyle(style); level > 0 {
			builder.addHeading(text, level)
		} else {
			builder.addParagraph(text)
		}
		paragraph.Reset()
		style = ""
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
			case "pStyle":
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			case "t":
				inText = true
			case "tab":
				if inPara {
					paragraph.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					paragraph.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inPara {
					flush()
					inPara = false
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inPara && inText {
				paragraph.Write(t)
			}
		}
	}

	if inPara {
		flush()
	}
	return nil
}

// headingLevelFromStyle maps styles like "Heading1" or "heading2" to their
// nesting level; 0 means not a heading.
func headingLevelFromStyle(style string) int {
	lower := strings.ToLower(style)
	if !strings.HasPrefix(lower, "heading") {
		return 0
	}
	level, err := strconv.Atoi(strings.TrimSpace(lower[len("heading"):]))
	if err != nil || level < 1 || level > 9 {
		return 0
	}
	return level
}
