package links

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/linkaudit/linkaudit/internal/model"
)

// Matcher joins broken probe results back to the pages that linked to
// them, producing the report rows.
type Matcher struct {
	// allOccurrences controls whether every page linking to a broken
	// href gets its own row, or only the first.
	allOccurrences bool
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithAllOccurrences makes Match report every occurrence of a broken
// href instead of only its first appearance. Useful when fixing the
// links, since every affected page must be edited.
func WithAllOccurrences() MatcherOption {
	return func(m *Matcher) {
		m.allOccurrences = true
	}
}

// NewMatcher creates a Matcher.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns one report row per broken href, attributed to the first
// link record referencing it. Records are scanned in order, so "first"
// follows page order from the harvest. With the all-occurrences option,
// every referencing record produces a row instead.
func (m *Matcher) Match(records []model.LinkRecord, broken []model.BrokenLink) []model.ReportRow {
	status := make(map[string]int, len(broken))
	for _, b := range broken {
		status[b.Href] = b.Status
	}

	seen := mapset.NewSet[string]()
	rows := make([]model.ReportRow, 0, len(broken))
	for _, record := range records {
		code, ok := status[record.Href]
		if !ok {
			continue
		}
		if !m.allOccurrences && !seen.Add(record.Href) {
			continue
		}
		rows = append(rows, model.ReportRow{
			SourcePage: record.SourcePage,
			Href:       record.Href,
			AnchorText: record.AnchorText,
			StatusCode: code,
		})
	}

	return rows
}
