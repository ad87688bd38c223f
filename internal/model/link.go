package model

// StatusUnreachable is the sentinel status code recorded when a probe request
// fails before any HTTP response arrives (DNS failure, connection refused,
// timeout). All transport errors collapse to this one value, distinguishing
// "unreachable" from "reachable but non-200".
const StatusUnreachable = 0

// Scope classifies a link as belonging to the audited domain or not.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons. The String() method provides human-readable
// output when needed.
type Scope int

const (
	// ScopeInternal indicates a link whose href contains the audited domain.
	ScopeInternal Scope = iota

	// ScopeExternal indicates a link that targets another domain.
	ScopeExternal
)

// String returns a human-readable representation of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeInternal:
		return "internal"
	case ScopeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Anchor is one hyperlink element extracted from a page's markup.
// It is transient: anchors exist only between harvesting and classification.
type Anchor struct {
	// Href is the value of the anchor's href attribute.
	Href string `json:"href"`

	// HasHref reports whether the href attribute was present at all.
	// Anchors without an href are discarded during classification.
	HasHref bool `json:"has_href"`

	// Text is the concatenated text of all descendant text nodes,
	// in document order and without trimming.
	Text string `json:"text"`
}

// PageAnchors groups the anchors harvested from a single page,
// in document order.
type PageAnchors struct {
	// Page is the URL the anchors were harvested from.
	Page string `json:"page"`

	// Anchors holds every anchor element found in the page body.
	Anchors []Anchor `json:"anchors"`
}

// LinkRecord is the atomic unit of provenance: "this page links to this href
// with this visible text". Records are produced once per anchor per page and
// never mutated. The union of the internal and external lists is the full
// link inventory of an audit.
type LinkRecord struct {
	// SourcePage is the page URL the anchor was found on.
	SourcePage string `json:"source_page"`

	// Href is the anchor's link target, exactly as written in the markup.
	Href string `json:"href"`

	// AnchorText is the visible text of the anchor.
	AnchorText string `json:"anchor_text"`
}

// BrokenLink records a probed href that did not answer 200.
// Status is the observed HTTP status code, or StatusUnreachable when the
// request failed entirely.
type BrokenLink struct {
	// Href is the probed link target.
	Href string `json:"href"`

	// Status is the HTTP status code, or 0 for transport failures.
	Status int `json:"status"`
}

// Unreachable reports whether the link failed at the transport level
// rather than answering with a non-200 status.
func (b BrokenLink) Unreachable() bool {
	return b.Status == StatusUnreachable
}

// ReportRow is the join of a BrokenLink back onto a LinkRecord by href
// equality. The struct tags fix the report schema: every output format
// renders exactly the columns URL, Broken Link URL, Anchor Text, Status Code.
type ReportRow struct {
	// SourcePage is the page the broken link occurs on.
	SourcePage string `json:"url" csv:"URL"`

	// Href is the broken link target.
	Href string `json:"broken_link_url" csv:"Broken Link URL"`

	// AnchorText is the visible text of the referencing anchor.
	AnchorText string `json:"anchor_text" csv:"Anchor Text"`

	// StatusCode is the probe result (0 means unreachable).
	StatusCode int `json:"status_code" csv:"Status Code"`
}

// PageError records a page that could not be fetched during a harvest that
// was configured to skip failures instead of aborting.
type PageError struct {
	// Page is the URL that failed to fetch.
	Page string `json:"page"`

	// Error is the fetch failure, as a string for serialization.
	Error string `json:"error"`
}

// ReportColumns returns the fixed column names of the tabular report.
func ReportColumns() []string {
	return []string{"URL", "Broken Link URL", "Anchor Text", "Status Code"}
}
