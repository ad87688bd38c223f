package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/net/html/charset"

	"github.com/linkaudit/linkaudit/internal/model"
)

// Harvester fetches pages and extracts their anchors.
//
// Design decision: We take the page list as input rather than crawling
// links recursively because:
//  1. The sitemap is the authoritative page inventory
//  2. A fixed list gives a predictable request count and progress output
//  3. Pages outside the sitemap are out of audit scope anyway
type Harvester struct {
	// client performs all HTTP fetches.
	client *http.Client

	// userAgent is the User-Agent header to send.
	userAgent string

	// referer is an optional Referer header to send.
	referer string

	// headers are extra request headers, e.g. auth cookies.
	headers map[string]string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// skipPageErrors makes fetch failures skip the page instead of
	// aborting the whole harvest.
	skipPageErrors bool

	// logger receives harvest progress at debug level.
	logger *slog.Logger
}

// HarvesterOption configures a Harvester.
type HarvesterOption func(*Harvester)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) HarvesterOption {
	return func(h *Harvester) {
		h.userAgent = ua
	}
}

// WithReferer sets a Referer header sent with every page fetch.
func WithReferer(referer string) HarvesterOption {
	return func(h *Harvester) {
		h.referer = referer
	}
}

// WithHeaders sets extra request headers sent with every page fetch.
func WithHeaders(headers map[string]string) HarvesterOption {
	return func(h *Harvester) {
		h.headers = headers
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) HarvesterOption {
	return func(h *Harvester) {
		if size > 0 {
			h.maxBodySize = size
		}
	}
}

// WithSkipPageErrors makes the harvest record fetch failures as skipped
// pages and continue, instead of aborting on the first failure.
func WithSkipPageErrors() HarvesterOption {
	return func(h *Harvester) {
		h.skipPageErrors = true
	}
}

// WithLogger sets the logger for harvest progress.
func WithLogger(logger *slog.Logger) HarvesterOption {
	return func(h *Harvester) {
		h.logger = logger
	}
}

// NewHarvester creates a Harvester using the given HTTP client.
//
// Design decision: We require an external client because:
//  1. Timeout policy belongs to the caller, not this package
//  2. Consistent with the sitemap enumerator and the prober
//  3. Allows httptest clients in tests
func NewHarvester(client *http.Client, opts ...HarvesterOption) *Harvester {
	h := &Harvester{
		client:      client,
		maxBodySize: 5 * 1024 * 1024, // 5MB
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Harvest fetches each page and extracts its anchors, returning one
// PageAnchors per successfully fetched page in input order.
//
// By default the first fetch failure aborts the harvest with an error
// naming the page. With WithSkipPageErrors, failed pages are returned
// as PageError entries instead and the harvest continues.
//
// Pages responding with a non-200 status are still parsed: error pages
// carry anchors too, and a page listed in the sitemap is part of the
// audit regardless of how the server labels it.
func (h *Harvester) Harvest(ctx context.Context, pages []string) ([]model.PageAnchors, []model.PageError, error) {
	harvested := make([]model.PageAnchors, 0, len(pages))
	skipped := make([]model.PageError, 0)

	for i, page := range pages {
		select {
		case <-ctx.Done():
			return harvested, skipped, ctx.Err()
		default:
		}

		anchors, err := h.fetchAnchors(ctx, page)
		if err != nil {
			if h.skipPageErrors {
				h.logger.Warn("page skipped", "page", page, "error", err)
				skipped = append(skipped, model.PageError{Page: page, Error: err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("harvest page %s: %w", page, err)
		}

		harvested = append(harvested, model.PageAnchors{Page: page, Anchors: anchors})
		h.logger.Debug("page harvested",
			"page", page,
			"anchors", len(anchors),
			"checked", i+1,
			"total", len(pages))
	}

	return harvested, skipped, nil
}

// fetchAnchors fetches one page and extracts its anchors.
func (h *Harvester) fetchAnchors(ctx context.Context, page string) ([]model.Anchor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page, nil)
	if err != nil {
		return nil, err
	}

	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	if h.referer != "" {
		req.Header.Set("Referer", h.referer)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Decode legacy charsets (ISO-8859-1, Shift_JIS, ...) to UTF-8 so
	// anchor text survives intact.
	body := io.LimitReader(resp.Body, h.maxBodySize)
	reader, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode page body: %w", err)
	}

	return ExtractAnchors(reader)
}
