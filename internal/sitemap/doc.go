// Package sitemap discovers a website's page inventory from its XML sitemap.
//
// Discovery checks robots.txt Sitemap: directives first, then falls back to
// /sitemap.xml and /sitemap_index.xml. Sitemap indexes are walked
// recursively with cycle protection, and gzipped sitemaps are decompressed
// transparently. Page URLs are returned in document order.
package sitemap
