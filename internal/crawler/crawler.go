// Package crawler fetches site pages for URL-based ingestion. It returns
// raw HTML; content extraction and chunking happen downstream in the
// ingestion pipeline so crawled pages and directly submitted URLs go through
// the same path.
package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"

	"github.com/Kanishk2004/plug-rag-sub002/internal/logger"
)

var httpTransport = &http.Transport{
	DisableCompression: false, // gzip handled by the transport, brotli below
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Config holds settings for one crawl job.
type Config struct {
	URL            string
	MaxPages       int
	MaxDepth       int
	AllowedDomains []string
	AllowedPaths   []string
	Delay          time.Duration
	Timeout        time.Duration

	// Render the start page in a headless browser before crawling, for
	// sites that build their content with JavaScript.
	RenderJS      bool
	RenderTimeout time.Duration
}

// Page is one fetched page. HTML is decoded to UTF-8 but otherwise
// untouched.
type Page struct {
	URL        string
	HTML       []byte
	StatusCode int
	FetchedAt  time.Time
	Rendered   bool
}

// Result summarizes a finished crawl.
type Result struct {
	StartURL     string
	Pages        []Page
	PagesCrawled int
}

// normalizeURL maps a URL to a canonical form for duplicate detection:
// no fragment, lowercase scheme and host, no default port, no trailing
// slash on non-root paths.
func normalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	parsed.Fragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	if path := parsed.Path; path != "" && path != "/" {
		parsed.Path = strings.TrimSuffix(path, "/")
	}

	if (parsed.Port() == "80" && parsed.Scheme == "http") ||
		(parsed.Port() == "443" && parsed.Scheme == "https") {
		parsed.Host = parsed.Hostname()
	}

	return parsed.String(), nil
}

// Crawl fetches up to cfg.MaxPages pages starting from cfg.URL, staying
// within the allowed domains and paths.
func Crawl(ctx context.Context, cfg Config) (*Result, error) {
	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" {
		parsedURL.Scheme = "https"
		cfg.URL = parsedURL.String()
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", parsedURL.Scheme)
	}

	startURL, err := normalizeURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}

	allowedDomains := cfg.AllowedDomains
	if len(allowedDomains) == 0 {
		hostname := strings.ToLower(parsedURL.Hostname())
		bare := strings.TrimPrefix(hostname, "www.")
		allowedDomains = []string{bare, "www." + bare}
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 50
	}
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = time.Second
	}

	// Fresh collector per crawl so visited-URL state never leaks between
	// jobs.
	c := colly.NewCollector(
		colly.Async(true),
		colly.MaxDepth(maxDepth),
		colly.AllowedDomains(allowedDomains...),
	)
	c.WithTransport(httpTransport)
	c.UserAgent = browserUserAgent

	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	} else {
		c.SetRequestTimeout(60 * time.Second)
	}

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       delay,
		RandomDelay: delay / 2,
	})

	var (
		mu       sync.Mutex
		pages    []Page
		firstErr error
	)
	processed := sync.Map{}

	result := &Result{StartURL: startURL}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Accept-Encoding", "gzip, deflate, br")
	})

	c.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") &&
			!strings.Contains(contentType, "application/xhtml+xml") {
			return
		}

		body := r.Body

		// The standard transport decompresses gzip but not brotli
		if strings.Contains(r.Headers.Get("Content-Encoding"), "br") {
			if decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body))); err == nil {
				body = decompressed
			}
		}

		if len(body) > 0 {
			if utf8Reader, err := charset.NewReader(bytes.NewReader(body), contentType); err == nil {
				if decoded, err := io.ReadAll(utf8Reader); err == nil && len(decoded) > 0 {
					body = decoded
				}
			}
		}

		pageURL, err := normalizeURL(r.Request.URL.String())
		if err != nil {
			return
		}
		if _, seen := processed.LoadOrStore(pageURL, true); seen {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if len(pages) >= maxPages {
			return
		}
		pages = append(pages, Page{
			URL:        pageURL,
			HTML:       body,
			StatusCode: r.StatusCode,
			FetchedAt:  time.Now(),
		})
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		mu.Lock()
		full := len(pages) >= maxPages
		mu.Unlock()
		if full {
			return
		}

		href := e.Attr("href")
		hrefLower := strings.ToLower(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(hrefLower, "javascript:") ||
			strings.HasPrefix(hrefLower, "mailto:") ||
			strings.HasPrefix(hrefLower, "tel:") {
			return
		}

		absolute := e.Request.AbsoluteURL(href)
		if absolute == "" {
			return
		}
		normalized, err := normalizeURL(absolute)
		if err != nil {
			return
		}
		if _, seen := processed.Load(normalized); seen {
			return
		}
		if !urlAllowed(normalized, cfg.AllowedPaths, allowedDomains) {
			return
		}

		e.Request.Visit(normalized)
	})

	c.OnError(func(r *colly.Response, err error) {
		if strings.Contains(err.Error(), "already visited") {
			return
		}
		pageURL, _ := normalizeURL(r.Request.URL.String())
		logger.Warn("Crawl fetch failed", "url", pageURL, "status", r.StatusCode, "error", err)

		mu.Lock()
		defer mu.Unlock()
		if pageURL == startURL && firstErr == nil {
			switch {
			case r.StatusCode == http.StatusForbidden:
				firstErr = fmt.Errorf("access forbidden (403): the site blocked the crawler")
			case r.StatusCode == http.StatusTooManyRequests:
				firstErr = fmt.Errorf("rate limited (429): too many requests")
			case r.StatusCode >= 500:
				firstErr = fmt.Errorf("server error (%d) fetching %s", r.StatusCode, pageURL)
			default:
				firstErr = fmt.Errorf("fetch %s: %w", pageURL, err)
			}
		}
	})

	// JS-heavy sites get the start page prerendered; link discovery still
	// runs through the regular collector.
	if cfg.RenderJS {
		renderTimeout := cfg.RenderTimeout
		if renderTimeout <= 0 {
			renderTimeout = 45 * time.Second
		}
		if html, renderErr := renderPageHTML(ctx, startURL, renderTimeout); renderErr == nil && html != "" {
			processed.Store(startURL, true)
			pages = append(pages, Page{
				URL:        startURL,
				HTML:       []byte(html),
				StatusCode: http.StatusOK,
				FetchedAt:  time.Now(),
				Rendered:   true,
			})
		} else if renderErr != nil {
			logger.Warn("JS render failed, falling back to plain fetch", "url", startURL, "error", renderErr)
		}
	}

	if err := c.Visit(startURL); err != nil && !strings.Contains(err.Error(), "already visited") {
		return nil, fmt.Errorf("failed to start crawl: %w", err)
	}
	c.Wait()

	mu.Lock()
	defer mu.Unlock()

	if len(pages) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, fmt.Errorf("no pages fetched from %s", startURL)
	}

	result.Pages = pages
	result.PagesCrawled = len(pages)
	return result, nil
}

// urlAllowed filters discovered links to the crawl's domains and path
// prefixes, and skips asset and feed URLs that never carry content.
func urlAllowed(urlStr string, allowedPaths, allowedDomains []string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	hostname := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	domainAllowed := false
	for _, domain := range allowedDomains {
		domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
		if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
			domainAllowed = true
			break
		}
	}
	if !domainAllowed {
		return false
	}

	if len(allowedPaths) > 0 {
		pathAllowed := false
		for _, prefix := range allowedPaths {
			if strings.HasPrefix(parsed.Path, prefix) {
				pathAllowed = true
				break
			}
		}
		if !pathAllowed {
			return false
		}
	}

	excluded := []string{
		"/wp-json/", "/api/", "/ajax/", "/feed/", "/rss/", "/atom/",
		"/wp-admin/", "/wp-includes/", "/search?", "/?s=",
		".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".css", ".js", ".xml",
	}
	pathLower := strings.ToLower(parsed.Path)
	queryLower := strings.ToLower(parsed.RawQuery)
	for _, pattern := range excluded {
		if strings.Contains(pathLower, pattern) || strings.Contains(queryLower, pattern) {
			return false
		}
	}

	return true
}
