package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/linkaudit/linkaudit/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminals and log files where table
// rendering is unwanted.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether scopes with no broken links are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
// It generates a Summary from the AuditReport if not already present.
func (w *SimpleWriter) Write(report *model.AuditReport) (int, error) {
	summary := report.Summary
	if summary == nil {
		summary = model.NewSummary(report)
	}

	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeSummary(&sb, summary)
	w.writeRows(&sb, "BROKEN INTERNAL LINKS", report.InternalRows)
	w.writeRows(&sb, "BROKEN EXTERNAL LINKS", report.ExternalRows)
	if w.verbose {
		w.writeSkippedPages(&sb, report.SkippedPages)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs only the summary in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeSummary(&sb, summary)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with audit information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         LINK AUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Domain:     %s\n", summary.Domain))
	sb.WriteString(fmt.Sprintf("Website:    %s\n", summary.WebsiteURL))
	sb.WriteString(fmt.Sprintf("Audit Date: %s\n", summary.DateAudited.Format("2006-01-02 15:04:05 MST")))

	if summary.Error != "" {
		sb.WriteString(fmt.Sprintf("Status:     ERROR - %s\n", summary.Error))
	} else {
		sb.WriteString("Status:     Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the count summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Sitemap pages:     %d\n", summary.SitemapPages))
	sb.WriteString(fmt.Sprintf("  Unique pages:      %d\n", summary.UniquePages))
	if summary.SkippedPages > 0 || w.showEmpty {
		sb.WriteString(fmt.Sprintf("  Skipped pages:     %d\n", summary.SkippedPages))
	}
	sb.WriteString(fmt.Sprintf("  Internal links:    %d (%d unique)\n", summary.InternalLinks, summary.UniqueInternal))
	sb.WriteString(fmt.Sprintf("  External links:    %d (%d unique)\n", summary.ExternalLinks, summary.UniqueExternal))
	sb.WriteString(fmt.Sprintf("  Discarded anchors: %d\n", summary.DiscardedAnchors))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  BROKEN INTERNAL:   %d\n", summary.BrokenInternal))
	sb.WriteString(fmt.Sprintf("  BROKEN EXTERNAL:   %d\n", summary.BrokenExternal))
	sb.WriteString(fmt.Sprintf("  UNREACHABLE:       %d\n", summary.Unreachable))
	if w.verbose && summary.Duration > 0 {
		sb.WriteString(fmt.Sprintf("  Duration:          %s\n", summary.Duration))
	}
	sb.WriteString("\n")
}

// writeRows writes one scope's broken-link rows.
func (w *SimpleWriter) writeRows(sb *strings.Builder, title string, rows []model.ReportRow) {
	if len(rows) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(rows) == 0 {
		sb.WriteString("  No broken links\n\n")
		return
	}

	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("  [%d] %s\n", row.StatusCode, row.Href))
		if row.AnchorText != "" {
			sb.WriteString(fmt.Sprintf("      on %s (%q)\n", row.SourcePage, row.AnchorText))
		} else {
			sb.WriteString(fmt.Sprintf("      on %s\n", row.SourcePage))
		}
	}
	sb.WriteString("\n")
}

// writeSkippedPages lists pages the harvester could not fetch, if any.
func (w *SimpleWriter) writeSkippedPages(sb *strings.Builder, skipped []model.PageError) {
	if len(skipped) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SKIPPED PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(skipped) == 0 {
		sb.WriteString("  No skipped pages\n")
	} else {
		for _, s := range skipped {
			sb.WriteString(fmt.Sprintf("  [!] %s: %s\n", s.Page, s.Error))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by linkaudit\n")
	sb.WriteString("https://github.com/linkaudit/linkaudit\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
