// Package crawler fetches pages and extracts their anchor elements.
//
// # Architecture
//
// The package is designed around the Harvester type, which walks a fixed
// page list (the sitemap inventory) rather than discovering pages by
// following links. One GET per page, then a full parse of the body into
// anchors.
//
// # Components
//
//   - Harvester: fetches each page and collects its anchors
//   - ExtractAnchors: HTML parser that returns every anchor in document order
//
// # Error handling
//
// The default harvest aborts on the first page that cannot be fetched,
// naming the page in the error. Callers that prefer a partial audit can
// opt into skipping failed pages, which records them for the report
// instead.
//
// # Usage
//
//	harvester := crawler.NewHarvester(httpClient, crawler.WithUserAgent(ua))
//	harvested, skipped, err := harvester.Harvest(ctx, pages)
package crawler
