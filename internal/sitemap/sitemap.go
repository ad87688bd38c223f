package sitemap

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"
)

const (
	// defaultMaxDepth limits sitemap index nesting. A sitemap index may
	// reference further indexes; five levels is far beyond what real
	// sites use and guards against reference cycles combined with the
	// visited set.
	defaultMaxDepth = 5

	// defaultMaxBodySize limits sitemap downloads. The sitemap protocol
	// caps a single file at 50MB uncompressed.
	defaultMaxBodySize = 50 * 1024 * 1024
)

// Enumerator discovers the page inventory of a website from its sitemap.
//
// Discovery order:
//  1. robots.txt Sitemap: directives
//  2. /sitemap.xml
//  3. /sitemap_index.xml
//
// Sitemap indexes are followed recursively up to the depth limit, with a
// visited set guarding against reference cycles.
type Enumerator struct {
	// client performs all HTTP fetches.
	client *http.Client

	// userAgent is the User-Agent header for sitemap requests.
	userAgent string

	// referer is an optional Referer header for sitemap requests.
	referer string

	// headers are extra request headers, e.g. auth cookies for
	// sites that serve their sitemap behind a login.
	headers map[string]string

	// maxDepth limits sitemap index nesting.
	maxDepth int

	// maxBodySize limits the size of a single sitemap download.
	maxBodySize int64

	// logger receives discovery progress at debug level.
	logger *slog.Logger
}

// Option configures an Enumerator.
type Option func(*Enumerator)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(e *Enumerator) {
		e.userAgent = ua
	}
}

// WithReferer sets a Referer header for sitemap requests.
func WithReferer(referer string) Option {
	return func(e *Enumerator) {
		e.referer = referer
	}
}

// WithHeaders sets extra request headers sent with every fetch.
func WithHeaders(headers map[string]string) Option {
	return func(e *Enumerator) {
		e.headers = headers
	}
}

// WithMaxDepth sets the sitemap index nesting limit.
func WithMaxDepth(depth int) Option {
	return func(e *Enumerator) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithMaxBodySize sets the maximum sitemap download size.
func WithMaxBodySize(size int64) Option {
	return func(e *Enumerator) {
		if size > 0 {
			e.maxBodySize = size
		}
	}
}

// WithLogger sets the logger for discovery progress.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enumerator) {
		e.logger = logger
	}
}

// NewEnumerator creates an Enumerator using the given HTTP client.
//
// Design decision: We require an external client because:
//  1. Timeout policy belongs to the caller, not this package
//  2. Consistent with the harvester and prober components
//  3. Allows httptest clients in tests
func NewEnumerator(client *http.Client, opts ...Option) *Enumerator {
	e := &Enumerator{
		client:      client,
		maxDepth:    defaultMaxDepth,
		maxBodySize: defaultMaxBodySize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// locEntry is a single <loc> holder, decoded from both <sitemap> and
// <url> elements.
type locEntry struct {
	Loc string `xml:"loc"`
}

// Enumerate returns every page URL listed in the site's sitemap, in
// document order. It returns ErrNoSitemap when no sitemap can be located,
// and a fetch or parse error when a located sitemap cannot be read.
func (e *Enumerator) Enumerate(ctx context.Context, websiteURL string) ([]string, error) {
	base, err := url.Parse(websiteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid website URL %q: %w", websiteURL, err)
	}
	if base.Scheme == "" {
		base.Scheme = "https"
	}

	roots, err := e.discoverRoots(ctx, base)
	if err != nil {
		return nil, err
	}

	visited := mapset.NewSet[string]()
	pages := make([]string, 0)
	for _, root := range roots {
		if err := e.walk(ctx, root, 0, visited, &pages); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("sitemap enumeration complete",
		"website", websiteURL,
		"sitemaps", visited.Cardinality(),
		"pages", len(pages))

	return pages, nil
}

// discoverRoots locates the top-level sitemap URLs for the site.
func (e *Enumerator) discoverRoots(ctx context.Context, base *url.URL) ([]string, error) {
	// robots.txt is the canonical place to announce sitemaps.
	if sitemaps := e.robotsSitemaps(ctx, base); len(sitemaps) > 0 {
		e.logger.Debug("sitemaps announced in robots.txt", "count", len(sitemaps))
		return sitemaps, nil
	}

	// Conventional locations, in order of likelihood.
	for _, path := range []string{"/sitemap.xml", "/sitemap_index.xml"} {
		candidate := base.ResolveReference(&url.URL{Path: path}).String()
		ok, err := e.exists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if ok {
			e.logger.Debug("sitemap found at conventional location", "url", candidate)
			return []string{candidate}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoSitemap, base.String())
}

// robotsSitemaps fetches robots.txt and returns any Sitemap: directives.
// Failures are treated as "no announcement"; robots.txt is optional.
func (e *Enumerator) robotsSitemaps(ctx context.Context, base *url.URL) []string {
	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"}).String()

	body, err := e.fetch(ctx, robotsURL)
	if err != nil {
		e.logger.Debug("robots.txt not available", "url", robotsURL, "error", err)
		return nil
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, e.maxBodySize))
	if err != nil {
		return nil
	}

	robots, err := robotstxt.FromBytes(data)
	if err != nil {
		return nil
	}

	return robots.Sitemaps
}

// exists reports whether a sitemap candidate responds with HTTP 200.
// A 404 is a normal miss; transport errors are propagated so that an
// unreachable site aborts enumeration instead of reporting "no sitemap".
func (e *Enumerator) exists(ctx context.Context, sitemapURL string) (bool, error) {
	body, err := e.fetch(ctx, sitemapURL)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return false, nil
		}
		return false, err
	}
	body.Close()
	return true, nil
}

// walk parses one sitemap, appending page URLs and recursing into
// nested sitemap indexes.
func (e *Enumerator) walk(ctx context.Context, sitemapURL string, depth int, visited mapset.Set[string], pages *[]string) error {
	if depth > e.maxDepth {
		return fmt.Errorf("%w: %s", ErrTooDeep, sitemapURL)
	}
	// Add reports false if the URL was already present. Seen sitemaps
	// are skipped so that index cycles terminate.
	if !visited.Add(sitemapURL) {
		return nil
	}

	body, err := e.fetch(ctx, sitemapURL)
	if err != nil {
		return fmt.Errorf("fetch sitemap %s: %w", sitemapURL, err)
	}
	defer body.Close()

	decoder := xml.NewDecoder(body)
	decoder.CharsetReader = charset.NewReaderLabel

	var children []string
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "sitemap":
			var entry locEntry
			if err := decoder.DecodeElement(&entry, &se); err != nil {
				return fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
			}
			if loc := strings.TrimSpace(entry.Loc); loc != "" {
				children = append(children, loc)
			}
		case "url":
			var entry locEntry
			if err := decoder.DecodeElement(&entry, &se); err != nil {
				return fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
			}
			if loc := strings.TrimSpace(entry.Loc); loc != "" {
				*pages = append(*pages, loc)
			}
		}
	}

	e.logger.Debug("sitemap parsed", "url", sitemapURL, "children", len(children))

	for _, child := range children {
		if err := e.walk(ctx, child, depth+1, visited, pages); err != nil {
			return err
		}
	}

	return nil
}

// fetch performs a GET and returns the response body, transparently
// decompressing gzipped sitemaps. Non-200 responses are returned as
// *StatusError.
func (e *Enumerator) fetch(ctx context.Context, fetchURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, err
	}

	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	if e.referer != "" {
		req.Header.Set("Referer", e.referer)
	}
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: fetchURL, StatusCode: resp.StatusCode}
	}

	var body io.Reader = io.LimitReader(resp.Body, e.maxBodySize)

	// Compressed sitemaps (sitemap.xml.gz) are common for large sites.
	contentType := resp.Header.Get("Content-Type")
	if strings.HasSuffix(strings.ToLower(fetchURL), ".gz") ||
		strings.Contains(contentType, "gzip") {
		gz, err := gzip.NewReader(body)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decompress sitemap %s: %w", fetchURL, err)
		}
		return &gzipReadCloser{gz: gz, underlying: resp.Body}, nil
	}

	return &limitedReadCloser{Reader: body, underlying: resp.Body}, nil
}

// limitedReadCloser pairs a limited reader with the response body's Close.
type limitedReadCloser struct {
	io.Reader
	underlying io.ReadCloser
}

// Close closes the underlying response body.
func (l *limitedReadCloser) Close() error {
	return l.underlying.Close()
}

// gzipReadCloser closes both the gzip reader and the response body.
type gzipReadCloser struct {
	gz         *gzip.Reader
	underlying io.ReadCloser
}

// Read reads decompressed bytes.
func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

// Close closes the gzip reader, then the response body.
func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	if err := g.underlying.Close(); err != nil {
		return err
	}
	return gzErr
}
