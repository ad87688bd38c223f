package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/linkaudit/linkaudit/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	summary := report.Summary
	if summary == nil {
		summary = model.NewSummary(report)
	}

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeSummary(md, summary)
	w.writeRows(md, "Broken Internal Links", report.InternalRows)
	w.writeRows(md, "Broken External Links", report.ExternalRows)
	w.writeSkippedPages(md, report.SkippedPages)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs only the summary portion in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeSummary(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with audit information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.Summary) {
	md.H1("Link Audit Report")
	md.PlainText("")

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Domain", "`" + summary.Domain + "`"},
			{"Website", summary.WebsiteURL},
			{"Audit Date", summary.DateAudited.Format("2006-01-02 15:04:05 MST")},
			{"Pages Audited", strconv.Itoa(summary.UniquePages)},
			{"Status", w.getStatusText(summary)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on summary state.
func (w *MarkdownWriter) getStatusText(summary *model.Summary) string {
	if summary.Error != "" {
		return "❌ Error - " + summary.Error
	}
	if summary.Clean() {
		return "✅ No broken links"
	}
	return "⚠️ " + strconv.Itoa(summary.TotalBroken()) + " broken link(s)"
}

// writeSummary writes the count summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Sitemap pages", strconv.Itoa(summary.SitemapPages)},
			{"Unique pages", strconv.Itoa(summary.UniquePages)},
			{"Skipped pages", strconv.Itoa(summary.SkippedPages)},
			{"Internal links", strconv.Itoa(summary.InternalLinks)},
			{"External links", strconv.Itoa(summary.ExternalLinks)},
			{"Discarded anchors", strconv.Itoa(summary.DiscardedAnchors)},
			{"Unique internal hrefs", strconv.Itoa(summary.UniqueInternal)},
			{"Unique external hrefs", strconv.Itoa(summary.UniqueExternal)},
			{"🔴 Broken internal", strconv.Itoa(summary.BrokenInternal)},
			{"🟠 Broken external", strconv.Itoa(summary.BrokenExternal)},
			{"⚫ Unreachable", strconv.Itoa(summary.Unreachable)},
		},
	})
	md.PlainText("")

	// Add pie chart if anything was probed
	if summary.UniqueInternal+summary.UniqueExternal > 0 {
		w.writePieChart(md, summary)
	}

	// Add alert based on what the audit found
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of the link health distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Health Distribution"),
		piechart.WithShowData(true),
	)

	healthy := summary.UniqueInternal + summary.UniqueExternal - summary.TotalBroken()
	if healthy > 0 {
		chart.LabelAndIntValue("Healthy", uint64(healthy))
	}
	if summary.BrokenInternal > 0 {
		chart.LabelAndIntValue("Broken Internal", uint64(summary.BrokenInternal))
	}
	if summary.BrokenExternal > 0 {
		chart.LabelAndIntValue("Broken External", uint64(summary.BrokenExternal))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on what the audit found.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.Summary) {
	switch {
	case summary.Unreachable > 0:
		md.Cautionf(
			"%d link(s) did not answer at all (status 0). The targets may be gone or blocking automated requests.",
			summary.Unreachable,
		)
	case summary.TotalBroken() > 0:
		md.Warningf(
			"%d broken link(s) found. Each one is listed below with the page referencing it.",
			summary.TotalBroken(),
		)
	default:
		md.Note("No broken links detected.")
	}
	md.PlainText("")
}

// writeRows writes one scope's broken-link rows as a table.
func (w *MarkdownWriter) writeRows(md *markdown.Markdown, title string, rows []model.ReportRow) {
	md.H2(title)
	md.PlainText("")

	if len(rows) == 0 {
		md.PlainText("No broken links in this scope.")
		md.PlainText("")
		return
	}

	tableRows := make([][]string, len(rows))
	for i, row := range rows {
		text := row.AnchorText
		if text == "" {
			text = "-"
		}

		tableRows[i] = []string{
			row.SourcePage,
			row.Href,
			truncateString(text, 60),
			strconv.Itoa(row.StatusCode),
		}
	}

	md.Table(markdown.TableSet{
		Header: model.ReportColumns(),
		Rows:   tableRows,
	})
	md.PlainText("")
}

// writeSkippedPages lists pages the harvester could not fetch, if any.
func (w *MarkdownWriter) writeSkippedPages(md *markdown.Markdown, skipped []model.PageError) {
	if len(skipped) == 0 {
		return
	}

	md.H2("Skipped Pages")
	md.PlainText("")

	items := make([]string, len(skipped))
	for i, s := range skipped {
		items[i] = s.Page + " (" + s.Error + ")"
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkaudit](https://github.com/linkaudit/linkaudit)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
