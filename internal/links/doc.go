// Package links implements the pure data stages between harvesting and
// probing: classifying anchors as internal or external, deduplicating
// pages and hrefs, and matching broken probe results back to the pages
// that reference them.
//
// All functions in this package are deterministic and perform no I/O.
package links
