package model

import (
	"time"
)

// AuditReport is the main audit result structure. It accumulates the output
// of every pipeline stage for one run: the page inventory from the sitemap,
// the harvested anchors, the classified link inventory, the probe results,
// and the final provenance rows.
//
// Design decision: We use a single large struct rather than many small ones
// to simplify serialization and database storage. Each pipeline step fills in
// the fields it owns and reads only fields produced by earlier steps.
type AuditReport struct {
	// === Audit Target ===

	// Domain is the bare audited domain name (no scheme), e.g. "example.com".
	Domain string `json:"domain"`

	// WebsiteURL is the full website URL with scheme, e.g. "https://example.com".
	WebsiteURL string `json:"website_url"`

	// DateAudited is the timestamp when the audit started.
	DateAudited time.Time `json:"date_audited"`

	// === Page Inventory ===

	// SitemapPages is the raw page list from the sitemap tree, in document
	// order. Sitemap indexes may reference overlapping child sitemaps, so
	// duplicates are possible here.
	SitemapPages []string `json:"sitemap_pages,omitempty"`

	// Pages is the deduplicated page list the harvester visits.
	Pages []string `json:"pages,omitempty"`

	// === Harvest Data ===

	// Harvested groups the anchors found on each page, in visit order.
	// Excluded from JSON due to size; the link inventory below carries
	// everything the report needs.
	Harvested []PageAnchors `json:"-"`

	// SkippedPages lists pages that failed to fetch when the harvester was
	// configured to skip failures instead of aborting.
	SkippedPages []PageError `json:"skipped_pages,omitempty"`

	// === Link Inventory ===

	// InternalLinks holds every anchor classified as internal, with provenance.
	InternalLinks []LinkRecord `json:"internal_links,omitempty"`

	// ExternalLinks holds every anchor classified as external, with provenance.
	ExternalLinks []LinkRecord `json:"external_links,omitempty"`

	// DiscardedAnchors counts anchors dropped during classification: anchors
	// without an href attribute and hrefs without an "http" marker. The count
	// is the only trace they leave.
	DiscardedAnchors int `json:"discarded_anchors"`

	// === Probe Results ===

	// UniqueInternal is the deduplicated internal href list, first-seen order.
	UniqueInternal []string `json:"unique_internal,omitempty"`

	// UniqueExternal is the deduplicated external href list, first-seen order.
	UniqueExternal []string `json:"unique_external,omitempty"`

	// BrokenInternal holds internal hrefs that answered non-200 or failed.
	BrokenInternal []BrokenLink `json:"broken_internal,omitempty"`

	// BrokenExternal holds external hrefs that answered non-200 or failed.
	BrokenExternal []BrokenLink `json:"broken_external,omitempty"`

	// CachedProbes counts hrefs whose status was reused from the probe cache
	// instead of being fetched.
	CachedProbes int `json:"cached_probes,omitempty"`

	// === Report Rows ===

	// InternalRows joins broken internal hrefs back to their source pages.
	InternalRows []ReportRow `json:"internal_rows,omitempty"`

	// ExternalRows joins broken external hrefs back to their source pages.
	ExternalRows []ReportRow `json:"external_rows,omitempty"`

	// === Audit State ===

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Duration is the wall-clock time of the whole audit.
	Duration time.Duration `json:"duration"`

	// Error contains any error that occurred during the audit.
	// Only set if the audit failed or partially failed.
	Error error `json:"-"` // Excluded from JSON

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional

	// Summary contains the aggregated counts for human-readable output.
	Summary *Summary `json:"summary,omitempty"`
}

// NewAuditReport creates a new report for the given domain and website URL.
func NewAuditReport(domain, websiteURL string) *AuditReport {
	return &AuditReport{
		Domain:      domain,
		WebsiteURL:  websiteURL,
		DateAudited: time.Now(),
	}
}

// Links returns the full link inventory: internal records followed by
// external records.
func (r *AuditReport) Links() []LinkRecord {
	links := make([]LinkRecord, 0, len(r.InternalLinks)+len(r.ExternalLinks))
	links = append(links, r.InternalLinks...)
	links = append(links, r.ExternalLinks...)
	return links
}

// Rows returns every report row: internal rows followed by external rows.
func (r *AuditReport) Rows() []ReportRow {
	rows := make([]ReportRow, 0, len(r.InternalRows)+len(r.ExternalRows))
	rows = append(rows, r.InternalRows...)
	rows = append(rows, r.ExternalRows...)
	return rows
}

// TotalBroken returns the number of distinct broken hrefs found.
func (r *AuditReport) TotalBroken() int {
	return len(r.BrokenInternal) + len(r.BrokenExternal)
}

// HasBrokenLinks reports whether the audit found any broken link.
func (r *AuditReport) HasBrokenLinks() bool {
	return r.TotalBroken() > 0
}

// UnreachableCount returns the number of broken hrefs that failed at the
// transport level (status 0) rather than answering with an error status.
func (r *AuditReport) UnreachableCount() int {
	count := 0
	for _, b := range r.BrokenInternal {
		if b.Unreachable() {
			count++
		}
	}
	for _, b := range r.BrokenExternal {
		if b.Unreachable() {
			count++
		}
	}
	return count
}

// RecordError stores an error on the report for serialization.
func (r *AuditReport) RecordError(err error) {
	if err == nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}
