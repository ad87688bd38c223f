package report

import (
	"bytes"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/linkaudit/linkaudit/internal/model"
)

// CSVWriter outputs report rows in CSV format.
// This format is designed for spreadsheets and downstream tooling.
//
// Design decision: We use the gocarina/gocsv library rather than
// encoding/csv because:
// 1. Column headers come from struct tags, keeping them in sync with the
//    fixed report schema
// 2. Rows marshal directly from the model types without manual string
//    conversion
// 3. Quoting and escaping follow RFC 4180 without extra code
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs every report row as CSV: one header line, then the broken
// internal rows followed by the broken external rows. An audit without
// broken links produces just the header.
func (w *CSVWriter) Write(report *model.AuditReport) (int, error) {
	rows := report.Rows()

	var buf bytes.Buffer
	if err := gocsv.Marshal(&rows, &buf); err != nil {
		return 0, err
	}

	return w.output.Write(buf.Bytes())
}

// csvSummary flattens a Summary into one CSV record.
type csvSummary struct {
	Domain         string `csv:"Domain"`
	WebsiteURL     string `csv:"Website URL"`
	DateAudited    string `csv:"Date Audited"`
	SitemapPages   int    `csv:"Sitemap Pages"`
	UniquePages    int    `csv:"Unique Pages"`
	InternalLinks  int    `csv:"Internal Links"`
	ExternalLinks  int    `csv:"External Links"`
	BrokenInternal int    `csv:"Broken Internal"`
	BrokenExternal int    `csv:"Broken External"`
	Unreachable    int    `csv:"Unreachable"`
}

// WriteSummary outputs the aggregated counts as a single CSV record.
func (w *CSVWriter) WriteSummary(summary *model.Summary) (int, error) {
	records := []csvSummary{{
		Domain:         summary.Domain,
		WebsiteURL:     summary.WebsiteURL,
		DateAudited:    summary.DateAudited.Format(time.RFC3339),
		SitemapPages:   summary.SitemapPages,
		UniquePages:    summary.UniquePages,
		InternalLinks:  summary.InternalLinks,
		ExternalLinks:  summary.ExternalLinks,
		BrokenInternal: summary.BrokenInternal,
		BrokenExternal: summary.BrokenExternal,
		Unreachable:    summary.Unreachable,
	}}

	var buf bytes.Buffer
	if err := gocsv.Marshal(&records, &buf); err != nil {
		return 0, err
	}

	return w.output.Write(buf.Bytes())
}
