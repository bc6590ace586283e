package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelector matches script/style/navigation chrome stripped before
// content extraction.
const boilerplateSelector = "script, style, noscript, iframe, nav, footer, header, aside, " +
	".nav, .navbar, .footer, .header, .sidebar, .advertisement, .ads, .skip-link"

// contentBlockSelector matches the elements promoted to structure markers,
// in document order.
const contentBlockSelector = "h1, h2, h3, h4, h5, h6, p, li, table, pre, blockquote"

// HTMLExtractor strips boilerplate, preserves heading/list/table structure
// as markers and optionally collects outbound links.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(ctx context.Context, data []byte, opts ProcessingOptions) (*ExtractedDocument, error) {
	return extractHTML(ctx, data, opts, "")
}

// ExtractPage extracts an HTML page that was already fetched elsewhere
// (crawled pages), attributing the given source URL in the metadata.
func ExtractPage(ctx context.Context, data []byte, sourceURL string, opts ProcessingOptions) (*ExtractedDocument, error) {
	return extractHTML(ctx, data, opts.Normalized(), sourceURL)
}

func extractHTML(ctx context.Context, data []byte, opts ProcessingOptions, sourceURL string) (*ExtractedDocument, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ExtractionError{Type: FileTypeHTML, Err: fmt.Errorf("parse html: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := Metadata{
		Title:     strings.TrimSpace(doc.Find("title").First().Text()),
		SourceURL: sourceURL,
	}
	if desc, ok := doc.Find("meta[name='description']").Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	}

	var links []Link
	if opts.ExtractLinks {
		links = collectLinks(doc)
	}

	doc.Find(boilerplateSelector).Remove()

	builder := &docBuilder{}
	doc.Find(contentBlockSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested matches (a paragraph inside a table cell, a list inside a
		// list item) are covered by their outermost ancestor.
		if s.ParentsFiltered(contentBlockSelector).Length() > 0 {
			return
		}

		text := collapseWhitespace(s.Text())
		if text == "" {
			return
		}

		tag := goquery.NodeName(s)
		switch tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			builder.addHeading(text, int(tag[1]-'0'))
		case "li":
			builder.addBlock(MarkerListItem, "", 0, text)
		case "table":
			builder.addBlock(MarkerTable, "", 0, tableText(s))
		default:
			builder.addParagraph(text)
		}
	})

	// Pages built without semantic markup still carry text in the body.
	if builder.text.Len() == 0 {
		if body := collapseWhitespace(doc.Find("body").Text()); body != "" {
			builder.addParagraph(body)
		}
	}

	return builder.build(meta, links), nil
}

// tableText renders a table row by row, cells separated by " | ".
func tableText(table *goquery.Selection) string {
	var rows []string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			if text := collapseWhitespace(cell.Text()); text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " | "))
		}
	})
	if len(rows) == 0 {
		return collapseWhitespace(table.Text())
	}
	return strings.Join(rows, "\n")
}

func collectLinks(doc *goquery.Document) []Link {
	var links []Link
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(lower, "javascript:") ||
			strings.HasPrefix(lower, "mailto:") ||
			strings.HasPrefix(lower, "tel:") {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true
		links = append(links, Link{Href: href, Text: collapseWhitespace(s.Text())})
	})
	return links
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
