package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rodaine/table"

	"github.com/linkaudit/linkaudit/internal/model"
)

// TableWriter outputs reports as aligned console tables.
// This is the default output format for terminal use.
//
// Design decision: We use the rodaine/table library rather than
// text/tabwriter because:
// 1. It handles column alignment and padding in one call
// 2. Rows are added as values, not pre-formatted strings
// 3. The header row stays in sync with the fixed report columns
type TableWriter struct {
	baseWriter
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer) *TableWriter {
	return &TableWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report: a summary block followed by one table of
// broken internal links and one table of broken external links.
func (w *TableWriter) Write(report *model.AuditReport) (int, error) {
	summary := report.Summary
	if summary == nil {
		summary = model.NewSummary(report)
	}

	var buf bytes.Buffer

	writeSummaryBlock(&buf, summary)

	fmt.Fprintf(&buf, "\nBroken internal links (%d)\n", len(report.InternalRows))
	writeRowTable(&buf, report.InternalRows)

	fmt.Fprintf(&buf, "\nBroken external links (%d)\n", len(report.ExternalRows))
	writeRowTable(&buf, report.ExternalRows)

	return w.output.Write(buf.Bytes())
}

// WriteSummary outputs only the summary block.
func (w *TableWriter) WriteSummary(summary *model.Summary) (int, error) {
	var buf bytes.Buffer
	writeSummaryBlock(&buf, summary)
	return w.output.Write(buf.Bytes())
}

// writeRowTable renders report rows as an aligned table with the fixed
// column set, or a placeholder line when there are no rows.
func writeRowTable(buf *bytes.Buffer, rows []model.ReportRow) {
	if len(rows) == 0 {
		buf.WriteString("  none\n")
		return
	}

	columns := model.ReportColumns()
	tbl := table.New(columns[0], columns[1], columns[2], columns[3]).WithWriter(buf)
	for _, row := range rows {
		tbl.AddRow(row.SourcePage, row.Href, row.AnchorText, row.StatusCode)
	}
	tbl.Print()
}

// writeSummaryBlock renders the audit counts as label/value lines.
func writeSummaryBlock(buf *bytes.Buffer, summary *model.Summary) {
	fmt.Fprintf(buf, "Link audit for %s (%s)\n", summary.Domain, summary.WebsiteURL)
	fmt.Fprintf(buf, "Audited:           %s\n", summary.DateAudited.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(buf, "Pages:             %d unique (%d in sitemap)\n", summary.UniquePages, summary.SitemapPages)
	if summary.SkippedPages > 0 {
		fmt.Fprintf(buf, "Skipped pages:     %d\n", summary.SkippedPages)
	}
	fmt.Fprintf(buf, "Internal links:    %d (%d unique)\n", summary.InternalLinks, summary.UniqueInternal)
	fmt.Fprintf(buf, "External links:    %d (%d unique)\n", summary.ExternalLinks, summary.UniqueExternal)
	fmt.Fprintf(buf, "Discarded anchors: %d\n", summary.DiscardedAnchors)
	fmt.Fprintf(buf, "Broken internal:   %d\n", summary.BrokenInternal)
	fmt.Fprintf(buf, "Broken external:   %d\n", summary.BrokenExternal)
	if summary.Unreachable > 0 {
		fmt.Fprintf(buf, "Unreachable:       %d\n", summary.Unreachable)
	}
	if summary.Duration > 0 {
		fmt.Fprintf(buf, "Duration:          %s\n", summary.Duration)
	}
	if summary.Error != "" {
		fmt.Fprintf(buf, "Error:             %s\n", summary.Error)
	}
}
