// Package model defines the core data structures used throughout linkaudit.
//
// This package contains the following main types:
//   - Anchor: A hyperlink element extracted from one page's markup
//   - LinkRecord: The provenance triple (source page, href, anchor text)
//   - BrokenLink: A probed href together with its failure status
//   - ReportRow: A broken href joined back to the page that references it
//   - AuditReport: The full result of one audit run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, links, probe, report, database)
// need to use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
