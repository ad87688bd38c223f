package probe

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/linkaudit/linkaudit/internal/model"
)

// drainLimit bounds how much of a probe response body is read before
// closing. Reading a little keeps connections reusable without
// downloading whole pages whose content is irrelevant to the probe.
const drainLimit = 32 * 1024

// Cache answers probes from previously recorded outcomes.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Lookup returns a cached status for the href, if one is fresh enough.
	Lookup(href string) (int, bool)

	// Store records a probe outcome for later lookups.
	Store(href string, status int)
}

// Prober checks each href for HTTP-level breakage.
//
// A href is broken when the response status is anything but 200, or when
// the request fails entirely (timeout, DNS failure, connection refused),
// which is recorded with the zero status sentinel.
//
// Design decision: We use a struct with the http.Client rather than
// passing the client on each call because:
//  1. Client configuration (timeout, redirects) should be consistent
//  2. Connection pooling works better with a shared client
//  3. Easier to test with httptest clients
type Prober struct {
	// client is the HTTP client used for all probes.
	client *http.Client

	// userAgent is the User-Agent header to send.
	userAgent string

	// referer is an optional Referer header to send.
	referer string

	// headers are extra request headers, e.g. auth cookies.
	headers map[string]string

	// method is the HTTP method used for probes.
	method string

	// concurrency bounds parallel probes. 1 means strictly sequential.
	concurrency int

	// lenient treats every status below 400 as live instead of
	// requiring exactly 200.
	lenient bool

	// cache answers probes from recorded outcomes, when set.
	cache Cache

	// logger receives probe progress at debug level.
	logger *slog.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithUserAgent sets a custom User-Agent header.
//
// Design decision: We allow customizing the User-Agent because:
//  1. Some sites reject or throttle unknown agents
//  2. Site configs can require a specific agent for authenticated crawls
//  3. The default should look like a common browser, not a bot
func WithUserAgent(ua string) ProberOption {
	return func(p *Prober) {
		p.userAgent = ua
	}
}

// WithReferer sets a Referer header sent with every probe.
func WithReferer(referer string) ProberOption {
	return func(p *Prober) {
		p.referer = referer
	}
}

// WithHeaders sets extra request headers sent with every probe.
func WithHeaders(headers map[string]string) ProberOption {
	return func(p *Prober) {
		p.headers = headers
	}
}

// WithMethod sets the HTTP method used for probes.
// The full audit uses GET; the quick check uses HEAD to skip bodies.
func WithMethod(method string) ProberOption {
	return func(p *Prober) {
		if method != "" {
			p.method = method
		}
	}
}

// WithConcurrency bounds the number of parallel probes.
func WithConcurrency(n int) ProberOption {
	return func(p *Prober) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLenientStatuses treats every status below 400 as live.
// The audit counts anything but 200 as broken; the quick check accepts
// redirects and other 2xx/3xx responses.
func WithLenientStatuses() ProberOption {
	return func(p *Prober) {
		p.lenient = true
	}
}

// WithCache answers probes from recorded outcomes where possible and
// records fresh outcomes for later runs.
func WithCache(cache Cache) ProberOption {
	return func(p *Prober) {
		p.cache = cache
	}
}

// WithLogger sets the logger for probe progress.
func WithLogger(logger *slog.Logger) ProberOption {
	return func(p *Prober) {
		p.logger = logger
	}
}

// NewProber creates a Prober using the given HTTP client.
//
// Design decision: We require an external http.Client rather than
// creating one internally because:
//  1. Timeout policy belongs to the caller, not this package
//  2. Connection pooling can be shared with the other pipeline stages
//  3. Allows httptest clients in tests
func NewProber(client *http.Client, opts ...ProberOption) *Prober {
	p := &Prober{
		client:      client,
		method:      http.MethodGet,
		concurrency: 1,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Result holds the outcome of probing a href list.
type Result struct {
	// Broken lists every href that failed its probe, in input order.
	Broken []model.BrokenLink

	// Cached counts probes answered from the cache instead of the network.
	Cached int
}

// Probe checks every href and returns the broken ones in input order.
// Probes run with the configured concurrency; an error is returned only
// when the context is cancelled, since transport failures are recorded
// as broken links rather than treated as probe errors.
func (p *Prober) Probe(ctx context.Context, hrefs []string) (*Result, error) {
	statuses := make([]int, len(hrefs))
	fromCache := make([]bool, len(hrefs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, href := range hrefs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if p.cache != nil {
				if status, ok := p.cache.Lookup(href); ok {
					statuses[i] = status
					fromCache[i] = true
					p.logger.Debug("probe answered from cache",
						"href", href,
						"status", status)
					return nil
				}
			}

			p.logger.Debug("probing link",
				"href", href,
				"current", i+1,
				"total", len(hrefs))

			statuses[i] = p.probeOne(gctx, href)

			if p.cache != nil {
				p.cache.Store(href, statuses[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Assemble in input order so reports are deterministic regardless of
	// probe completion order.
	result := &Result{Broken: make([]model.BrokenLink, 0)}
	for i, href := range hrefs {
		if fromCache[i] {
			result.Cached++
		}
		if p.isBroken(statuses[i]) {
			result.Broken = append(result.Broken, model.BrokenLink{
				Href:   href,
				Status: statuses[i],
			})
		}
	}

	return result, nil
}

// probeOne issues a single probe and returns the observed status code,
// or StatusUnreachable when the request could not complete at all.
func (p *Prober) probeOne(ctx context.Context, href string) int {
	req, err := http.NewRequestWithContext(ctx, p.method, href, nil)
	if err != nil {
		return model.StatusUnreachable
	}

	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	if p.referer != "" {
		req.Header.Set("Referer", p.referer)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return model.StatusUnreachable
	}
	defer resp.Body.Close()

	// Drain a little so keep-alive connections can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	return resp.StatusCode
}

// isBroken applies the configured status policy.
func (p *Prober) isBroken(status int) bool {
	if p.lenient {
		return status == model.StatusUnreachable || status >= 400
	}
	return status != http.StatusOK
}
