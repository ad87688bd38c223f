package links

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/linkaudit/linkaudit/internal/model"
)

// UniquePages removes duplicate page URLs, preserving first-seen order.
// Sitemaps commonly list the same URL several times, e.g. once in the
// main sitemap and again in a news or image sitemap.
func UniquePages(pages []string) []string {
	seen := mapset.NewSet[string]()
	unique := make([]string, 0, len(pages))
	for _, page := range pages {
		// Add reports true only for the first occurrence.
		if seen.Add(page) {
			unique = append(unique, page)
		}
	}
	return unique
}

// UniqueHrefs returns each distinct href among the given link records,
// preserving the order of first appearance. The probe stage works on
// this list so that a link appearing on every page of a site is
// requested exactly once.
func UniqueHrefs(records []model.LinkRecord) []string {
	seen := mapset.NewSet[string]()
	unique := make([]string, 0, len(records))
	for _, record := range records {
		if seen.Add(record.Href) {
			unique = append(unique, record.Href)
		}
	}
	return unique
}
