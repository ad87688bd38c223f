package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/linkaudit/linkaudit/internal/config"
	"github.com/linkaudit/linkaudit/internal/crawler"
	"github.com/linkaudit/linkaudit/internal/links"
	"github.com/linkaudit/linkaudit/internal/model"
	"github.com/linkaudit/linkaudit/internal/probe"
	"github.com/linkaudit/linkaudit/internal/sitemap"
)

// EnumerateStep discovers the page inventory from the site's sitemap.
//
// Design decision: Enumeration is its own step because:
// 1. It is the only stage that can conclude "this site is unauditable"
// 2. Its output (the raw page list) is worth keeping in the report
// 3. Tests can replace it with a fixed page list
type EnumerateStep struct {
	// enumerator discovers pages from the sitemap tree.
	enumerator *sitemap.Enumerator

	// logger for structured logging.
	logger *slog.Logger
}

// EnumerateStepOption configures an EnumerateStep.
type EnumerateStepOption func(*EnumerateStep)

// WithEnumerateLogger sets a custom logger for the enumerate step.
func WithEnumerateLogger(logger *slog.Logger) EnumerateStepOption {
	return func(s *EnumerateStep) {
		s.logger = logger
	}
}

// NewEnumerateStep creates a sitemap enumeration step.
func NewEnumerateStep(enumerator *sitemap.Enumerator, opts ...EnumerateStepOption) *EnumerateStep {
	s := &EnumerateStep{
		enumerator: enumerator,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *EnumerateStep) Name() string {
	return "enumerate_sitemap"
}

// Do executes the enumeration step. A site without a usable sitemap
// aborts the audit; an empty sitemap is a valid (if trivial) inventory.
func (s *EnumerateStep) Do(ctx context.Context, report *model.AuditReport) error {
	pages, err := s.enumerator.Enumerate(ctx, report.WebsiteURL)
	if err != nil {
		return fmt.Errorf("enumerate sitemap: %w", err)
	}

	report.SitemapPages = pages
	s.logger.Info("sitemap enumerated",
		"website", report.WebsiteURL,
		"pages", len(pages),
	)

	return nil
}

// DedupeStep collapses the raw sitemap page list into unique pages.
type DedupeStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// DedupeStepOption configures a DedupeStep.
type DedupeStepOption func(*DedupeStep)

// WithDedupeLogger sets a custom logger for the dedupe step.
func WithDedupeLogger(logger *slog.Logger) DedupeStepOption {
	return func(s *DedupeStep) {
		s.logger = logger
	}
}

// NewDedupeStep creates a page deduplication step.
func NewDedupeStep(opts ...DedupeStepOption) *DedupeStep {
	s := &DedupeStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *DedupeStep) Name() string {
	return "dedupe_pages"
}

// Do executes the deduplication step. Pure, no failure mode.
func (s *DedupeStep) Do(_ context.Context, report *model.AuditReport) error {
	report.Pages = links.UniquePages(report.SitemapPages)
	s.logger.Debug("pages deduplicated",
		"raw", len(report.SitemapPages),
		"unique", len(report.Pages),
	)

	return nil
}

// HarvestStep fetches each unique page and extracts its anchors.
type HarvestStep struct {
	// harvester fetches pages and parses anchors.
	harvester *crawler.Harvester

	// logger for structured logging.
	logger *slog.Logger
}

// HarvestStepOption configures a HarvestStep.
type HarvestStepOption func(*HarvestStep)

// WithHarvestLogger sets a custom logger for the harvest step.
func WithHarvestLogger(logger *slog.Logger) HarvestStepOption {
	return func(s *HarvestStep) {
		s.logger = logger
	}
}

// NewHarvestStep creates an anchor harvesting step.
func NewHarvestStep(harvester *crawler.Harvester, opts ...HarvestStepOption) *HarvestStep {
	s := &HarvestStep{
		harvester: harvester,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *HarvestStep) Name() string {
	return "harvest_anchors"
}

// Do executes the harvest step.
func (s *HarvestStep) Do(ctx context.Context, report *model.AuditReport) error {
	harvested, skipped, err := s.harvester.Harvest(ctx, report.Pages)
	if err != nil {
		return fmt.Errorf("harvest anchors: %w", err)
	}

	report.Harvested = harvested
	report.SkippedPages = skipped

	anchors := 0
	for _, page := range harvested {
		anchors += len(page.Anchors)
	}
	s.logger.Info("anchors harvested",
		"pages", len(harvested),
		"skipped", len(skipped),
		"anchors", anchors,
	)

	return nil
}

// ClassifyStep partitions harvested anchors into internal and external
// link records.
type ClassifyStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// ClassifyStepOption configures a ClassifyStep.
type ClassifyStepOption func(*ClassifyStep)

// WithClassifyLogger sets a custom logger for the classify step.
func WithClassifyLogger(logger *slog.Logger) ClassifyStepOption {
	return func(s *ClassifyStep) {
		s.logger = logger
	}
}

// NewClassifyStep creates a link classification step.
// The domain to classify against comes from the report.
func NewClassifyStep(opts ...ClassifyStepOption) *ClassifyStep {
	s := &ClassifyStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify_links"
}

// Do executes the classification step. Pure, no failure mode.
func (s *ClassifyStep) Do(_ context.Context, report *model.AuditReport) error {
	result := links.NewClassifier(report.Domain).Classify(report.Harvested)

	report.InternalLinks = result.Internal
	report.ExternalLinks = result.External
	report.DiscardedAnchors = result.Discarded

	s.logger.Info("links classified",
		"internal", len(result.Internal),
		"external", len(result.External),
		"discarded", result.Discarded,
	)

	return nil
}

// ProbeStep deduplicates hrefs per scope and checks each unique href for
// breakage. Internal and external links are probed as separate lists so
// the report can present them separately.
type ProbeStep struct {
	// prober performs the HTTP checks.
	prober *probe.Prober

	// logger for structured logging.
	logger *slog.Logger
}

// ProbeStepOption configures a ProbeStep.
type ProbeStepOption func(*ProbeStep)

// WithProbeLogger sets a custom logger for the probe step.
func WithProbeLogger(logger *slog.Logger) ProbeStepOption {
	return func(s *ProbeStep) {
		s.logger = logger
	}
}

// NewProbeStep creates a liveness probing step.
func NewProbeStep(prober *probe.Prober, opts ...ProbeStepOption) *ProbeStep {
	s := &ProbeStep{
		prober: prober,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ProbeStep) Name() string {
	return "probe_links"
}

// Do executes the probe step.
func (s *ProbeStep) Do(ctx context.Context, report *model.AuditReport) error {
	report.UniqueInternal = links.UniqueHrefs(report.InternalLinks)
	report.UniqueExternal = links.UniqueHrefs(report.ExternalLinks)

	internal, err := s.prober.Probe(ctx, report.UniqueInternal)
	if err != nil {
		return fmt.Errorf("probe internal links: %w", err)
	}

	external, err := s.prober.Probe(ctx, report.UniqueExternal)
	if err != nil {
		return fmt.Errorf("probe external links: %w", err)
	}

	report.BrokenInternal = internal.Broken
	report.BrokenExternal = external.Broken
	report.CachedProbes = internal.Cached + external.Cached

	s.logger.Info("links probed",
		"unique_internal", len(report.UniqueInternal),
		"unique_external", len(report.UniqueExternal),
		"broken_internal", len(internal.Broken),
		"broken_external", len(external.Broken),
		"cached", report.CachedProbes,
	)

	return nil
}

// MatchStep joins broken hrefs back to the pages referencing them,
// producing the report rows.
type MatchStep struct {
	// allOccurrences reports every referencing page instead of the first.
	allOccurrences bool

	// logger for structured logging.
	logger *slog.Logger
}

// MatchStepOption configures a MatchStep.
type MatchStepOption func(*MatchStep)

// WithMatchAllOccurrences makes the step emit one row per referencing
// page rather than one row per broken href.
func WithMatchAllOccurrences() MatchStepOption {
	return func(s *MatchStep) {
		s.allOccurrences = true
	}
}

// WithMatchLogger sets a custom logger for the match step.
func WithMatchLogger(logger *slog.Logger) MatchStepOption {
	return func(s *MatchStep) {
		s.logger = logger
	}
}

// NewMatchStep creates a broken-link matching step.
func NewMatchStep(opts ...MatchStepOption) *MatchStep {
	s := &MatchStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *MatchStep) Name() string {
	return "match_broken"
}

// Do executes the match step. Pure, no failure mode.
func (s *MatchStep) Do(_ context.Context, report *model.AuditReport) error {
	var matcherOpts []links.MatcherOption
	if s.allOccurrences {
		matcherOpts = append(matcherOpts, links.WithAllOccurrences())
	}
	matcher := links.NewMatcher(matcherOpts...)

	report.InternalRows = matcher.Match(report.InternalLinks, report.BrokenInternal)
	report.ExternalRows = matcher.Match(report.ExternalLinks, report.BrokenExternal)

	s.logger.Info("broken links matched",
		"internal_rows", len(report.InternalRows),
		"external_rows", len(report.ExternalRows),
	)

	return nil
}

// DefaultPipelineConfig holds optional wiring for the default pipeline.
type DefaultPipelineConfig struct {
	// Cache answers probes from recorded outcomes, when set.
	Cache probe.Cache

	// Logger is used by every step when set.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithProbeCache wires a probe cache into the default pipeline.
func WithProbeCache(cache probe.Cache) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Cache = cache
	}
}

// WithPipelineLogger sets the logger used by the pipeline and its steps.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline assembles the full audit pipeline from a configuration:
// enumerate, dedupe, harvest, classify, probe, match.
//
// Design decision: We provide a default pipeline because:
// 1. The stage order is fixed; callers should not have to know it
// 2. Reduces boilerplate in the CLI
// 3. Component options derive mechanically from the configuration
func DefaultPipeline(client *http.Client, cfg *config.Config, opts ...DefaultPipelineOption) *Pipeline {
	pc := &DefaultPipelineConfig{}
	for _, opt := range opts {
		opt(pc)
	}

	logger := pc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enumerator := sitemap.NewEnumerator(client,
		sitemap.WithUserAgent(cfg.UserAgent),
		sitemap.WithReferer(cfg.Referer),
		sitemap.WithHeaders(cfg.Headers),
		sitemap.WithMaxDepth(cfg.SitemapDepth),
		sitemap.WithLogger(logger),
	)

	harvesterOpts := []crawler.HarvesterOption{
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithReferer(cfg.Referer),
		crawler.WithHeaders(cfg.Headers),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithLogger(logger),
	}
	if cfg.SkipPageErrors {
		harvesterOpts = append(harvesterOpts, crawler.WithSkipPageErrors())
	}
	harvester := crawler.NewHarvester(client, harvesterOpts...)

	proberOpts := []probe.ProberOption{
		probe.WithUserAgent(cfg.UserAgent),
		probe.WithReferer(cfg.Referer),
		probe.WithHeaders(cfg.Headers),
		probe.WithConcurrency(cfg.ProbeConcurrency),
		probe.WithLogger(logger),
	}
	if pc.Cache != nil {
		proberOpts = append(proberOpts, probe.WithCache(pc.Cache))
	}
	prober := probe.NewProber(client, proberOpts...)

	matchOpts := []MatchStepOption{WithMatchLogger(logger)}
	if cfg.AllOccurrences {
		matchOpts = append(matchOpts, WithMatchAllOccurrences())
	}

	p := New(WithLogger(logger))
	p.AddSteps(
		NewEnumerateStep(enumerator, WithEnumerateLogger(logger)),
		NewDedupeStep(WithDedupeLogger(logger)),
		NewHarvestStep(harvester, WithHarvestLogger(logger)),
		NewClassifyStep(WithClassifyLogger(logger)),
		NewProbeStep(prober, WithProbeLogger(logger)),
		NewMatchStep(matchOpts...),
	)

	return p
}
