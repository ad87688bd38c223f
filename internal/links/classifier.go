package links

import (
	"strings"

	"github.com/linkaudit/linkaudit/internal/model"
)

// Classifier splits harvested anchors into internal and external link
// records for a given domain.
//
// Classification is substring-based on the raw href text, never on a
// parsed URL:
//
//  1. An anchor without an href attribute is discarded.
//  2. An href containing both the domain and "http" is internal.
//  3. An href containing no "http" at all is discarded. This drops
//     relative paths, fragments, mailto: and protocol-relative links.
//  4. Everything else is external.
//
// The substring rules intentionally trade precision for predictability:
// an absolute URL whose text mentions the domain anywhere (including in
// a path or a longer hostname) counts as internal. Probing tolerates the
// resulting false positives because every candidate is verified by an
// actual request.
type Classifier struct {
	// domain is the substring that marks an href as internal.
	domain string
}

// NewClassifier creates a Classifier for the given domain.
// The domain is matched verbatim, e.g. "example.com".
func NewClassifier(domain string) *Classifier {
	return &Classifier{domain: domain}
}

// Result holds the classified link records of a harvest.
type Result struct {
	// Internal are links whose href contains the domain.
	Internal []model.LinkRecord

	// External are absolute links pointing elsewhere.
	External []model.LinkRecord

	// Discarded counts anchors dropped by rules 1 and 3.
	Discarded int
}

// Classify walks every anchor of every harvested page and returns the
// classified link records. Record order follows page order, then anchor
// order within each page.
func (c *Classifier) Classify(harvested []model.PageAnchors) *Result {
	result := &Result{
		Internal: make([]model.LinkRecord, 0),
		External: make([]model.LinkRecord, 0),
	}

	for _, page := range harvested {
		for _, anchor := range page.Anchors {
			if !anchor.HasHref {
				result.Discarded++
				continue
			}

			record := model.LinkRecord{
				SourcePage: page.Page,
				Href:       anchor.Href,
				AnchorText: anchor.Text,
			}

			switch {
			case strings.Contains(anchor.Href, c.domain) && strings.Contains(anchor.Href, "http"):
				result.Internal = append(result.Internal, record)
			case !strings.Contains(anchor.Href, "http"):
				result.Discarded++
			default:
				result.External = append(result.External, record)
			}
		}
	}

	return result
}
