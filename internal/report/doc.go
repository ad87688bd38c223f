// Package report provides report generation and output functionality.
//
// This package contains writers for different output formats:
//   - TableWriter: Aligned console tables, the default terminal output
//   - CSVWriter: Four-column CSV for spreadsheets and tooling
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown documents for documentation and sharing
//   - SimpleWriter: Fixed-width text for logs and plain terminals
//
// Every format renders the same four report columns per broken link:
// URL, Broken Link URL, Anchor Text, Status Code. Broken internal links
// are always presented before broken external links.
//
// Design decision: We separate report writing from report data structures
// (which are in the model package) to follow the single responsibility
// principle. This allows adding new output formats without modifying
// the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
