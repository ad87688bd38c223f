// Package main provides the entry point for the linkaudit CLI.
//
// linkaudit audits websites for broken links. It enumerates a site's pages
// from its XML sitemap, harvests every anchor, probes each unique link for
// liveness, and reports the pages, anchor texts, and status codes of every
// broken link found.
//
// Usage:
//
//	linkaudit audit <domain> <website-url>
//	linkaudit check <url>
//
// See --help for all available options.
package main

// main is the entry point for linkaudit.
func main() {
	Execute()
}
