package model

import "time"

// Summary is the aggregated, human-readable view of one audit.
//
// Design decision: We create a separate summary struct rather than just
// printing parts of AuditReport because:
// 1. It provides a consistent, curated view of the counts that matter
// 2. It can be serialized to JSON for tools that want structured but simple output
// 3. It separates presentation concerns from data collection
type Summary struct {
	// Domain is the audited domain name.
	Domain string `json:"domain"`

	// WebsiteURL is the audited website URL.
	WebsiteURL string `json:"website_url"`

	// DateAudited is when the audit was performed.
	DateAudited time.Time `json:"date_audited"`

	// === Page Counts ===

	// SitemapPages is the raw page count from the sitemap tree.
	SitemapPages int `json:"sitemap_pages"`

	// UniquePages is the number of distinct pages harvested.
	UniquePages int `json:"unique_pages"`

	// SkippedPages is the number of pages that failed to fetch and were skipped.
	SkippedPages int `json:"skipped_pages,omitempty"`

	// === Link Counts ===

	// InternalLinks is the total number of internal link records.
	InternalLinks int `json:"internal_links"`

	// ExternalLinks is the total number of external link records.
	ExternalLinks int `json:"external_links"`

	// DiscardedAnchors is the number of anchors dropped during classification.
	DiscardedAnchors int `json:"discarded_anchors"`

	// UniqueInternal is the number of distinct internal hrefs probed.
	UniqueInternal int `json:"unique_internal"`

	// UniqueExternal is the number of distinct external hrefs probed.
	UniqueExternal int `json:"unique_external"`

	// === Broken Link Counts ===

	// BrokenInternal is the number of broken internal hrefs.
	BrokenInternal int `json:"broken_internal"`

	// BrokenExternal is the number of broken external hrefs.
	BrokenExternal int `json:"broken_external"`

	// Unreachable is the number of broken hrefs that failed at the transport
	// level (sentinel status 0).
	Unreachable int `json:"unreachable"`

	// === Run State ===

	// Duration is the wall-clock time of the audit.
	Duration time.Duration `json:"duration"`

	// Error contains the audit error message, if any.
	Error string `json:"error,omitempty"`
}

// NewSummary builds a Summary from a finished audit report.
func NewSummary(report *AuditReport) *Summary {
	s := &Summary{
		Domain:           report.Domain,
		WebsiteURL:       report.WebsiteURL,
		DateAudited:      report.DateAudited,
		SitemapPages:     len(report.SitemapPages),
		UniquePages:      len(report.Pages),
		SkippedPages:     len(report.SkippedPages),
		InternalLinks:    len(report.InternalLinks),
		ExternalLinks:    len(report.ExternalLinks),
		DiscardedAnchors: report.DiscardedAnchors,
		UniqueInternal:   len(report.UniqueInternal),
		UniqueExternal:   len(report.UniqueExternal),
		BrokenInternal:   len(report.BrokenInternal),
		BrokenExternal:   len(report.BrokenExternal),
		Unreachable:      report.UnreachableCount(),
		Duration:         report.Duration,
	}
	if report.Error != nil {
		s.Error = report.Error.Error()
	}
	return s
}

// TotalBroken returns the number of distinct broken hrefs.
func (s *Summary) TotalBroken() int {
	return s.BrokenInternal + s.BrokenExternal
}

// Clean reports whether the audit found no broken links at all.
func (s *Summary) Clean() bool {
	return s.TotalBroken() == 0
}
