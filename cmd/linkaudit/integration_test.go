package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linkaudit/linkaudit/internal/config"
	"github.com/linkaudit/linkaudit/internal/database"
	"github.com/linkaudit/linkaudit/internal/report"
)

// notFound registers an explicit 404 so the catch-all page handler does
// not answer for the path.
func notFound(mux *http.ServeMux, path string) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
}

func TestAuditEndToEnd(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	// Alive external target: same listener, reached via localhost so the
	// href does not contain the audited domain
	external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer external.Close()
	externalAlive := strings.Replace(external.URL, "127.0.0.1", "localhost", 1) + "/partner"

	// Dead external target: a closed listener's port refuses connections
	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	externalDead := strings.Replace(closed.URL, "127.0.0.1", "localhost", 1) + "/gone"
	closed.Close()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	notFound(mux, "/robots.txt")
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/</loc></url>
  <url><loc>%s/about</loc></url>
  <url><loc>%s/</loc></url>
</urlset>`, srv.URL, srv.URL, srv.URL)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
			<a href="%s/ok">Works</a>
			<a href="%s/dead">Broken thing</a>
			<a href="%s">External gone</a>
		</body></html>`, srv.URL, srv.URL, externalDead)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
			<a href="%s/ok">Works again</a>
			<a href="%s">External fine</a>
		</body></html>`, srv.URL, externalAlive)
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/dead", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	reportPath := filepath.Join(t.TempDir(), "report.json")

	cfg := config.NewConfig()
	cfg.Domain = "127.0.0.1"
	cfg.WebsiteURL = srv.URL
	cfg.Timeout = 10 * time.Second
	cfg.ProbeConcurrency = 2
	cfg.JSONReport = true
	cfg.ReportFile = reportPath
	cfg.SaveToDB = true
	cfg.DBDir = t.TempDir()

	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	auditErr := runAudit(context.Background(), cfg, setupLogger(false))

	w.Close()
	os.Stdout = oldStdout

	if auditErr != nil {
		t.Fatalf("runAudit() error = %v", auditErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	if !strings.Contains(output, "Auditing "+srv.URL) {
		t.Errorf("expected progress output, got: %s", output)
	}
	if !strings.Contains(output, "Audit completed") {
		t.Errorf("expected completion output, got: %s", output)
	}

	// The written report carries the full pipeline result
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("failed to read report file: %v", err)
	}

	var jr report.JSONReport
	if err := json.Unmarshal(data, &jr); err != nil {
		t.Fatalf("failed to parse report JSON: %v", err)
	}

	if jr.Version == "" {
		t.Error("expected version in report envelope")
	}
	if jr.Summary == nil {
		t.Error("expected summary in report envelope")
	}
	if jr.Report.Domain != "127.0.0.1" {
		t.Errorf("unexpected domain: %q", jr.Report.Domain)
	}

	// Three sitemap entries collapse to two unique pages
	if len(jr.Report.Pages) != 2 {
		t.Errorf("expected 2 unique pages, got %d: %v", len(jr.Report.Pages), jr.Report.Pages)
	}

	// /ok appears on both pages but is probed once
	if len(jr.Report.UniqueInternal) != 2 {
		t.Errorf("expected 2 unique internal hrefs, got %d: %v",
			len(jr.Report.UniqueInternal), jr.Report.UniqueInternal)
	}

	if len(jr.Report.BrokenInternal) != 1 {
		t.Fatalf("expected 1 broken internal link, got %d: %v",
			len(jr.Report.BrokenInternal), jr.Report.BrokenInternal)
	}
	if jr.Report.BrokenInternal[0].Href != srv.URL+"/dead" {
		t.Errorf("unexpected broken internal href: %q", jr.Report.BrokenInternal[0].Href)
	}
	if jr.Report.BrokenInternal[0].Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", jr.Report.BrokenInternal[0].Status)
	}

	if len(jr.Report.BrokenExternal) != 1 {
		t.Fatalf("expected 1 broken external link, got %d: %v",
			len(jr.Report.BrokenExternal), jr.Report.BrokenExternal)
	}
	if jr.Report.BrokenExternal[0].Href != externalDead {
		t.Errorf("unexpected broken external href: %q", jr.Report.BrokenExternal[0].Href)
	}
	if jr.Report.BrokenExternal[0].Status != 0 {
		t.Errorf("expected status 0 for refused connection, got %d", jr.Report.BrokenExternal[0].Status)
	}

	// Provenance: the broken internal link is referenced from the home page
	if len(jr.Report.InternalRows) != 1 {
		t.Fatalf("expected 1 internal report row, got %d", len(jr.Report.InternalRows))
	}
	row := jr.Report.InternalRows[0]
	if row.SourcePage != srv.URL+"/" {
		t.Errorf("unexpected source page: %q", row.SourcePage)
	}
	if row.AnchorText != "Broken thing" {
		t.Errorf("unexpected anchor text: %q", row.AnchorText)
	}
	if row.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected row status: %d", row.StatusCode)
	}

	// The audit and its probe outcomes were persisted
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	history, err := db.AuditHistory(ctx, "127.0.0.1")
	if err != nil {
		t.Fatalf("failed to get audit history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 stored audit, got %d", len(history))
	}
	if history[0].Pages != 2 {
		t.Errorf("expected 2 pages in metadata, got %d", history[0].Pages)
	}
	if history[0].BrokenInternal != 1 {
		t.Errorf("expected 1 broken internal in metadata, got %d", history[0].BrokenInternal)
	}
	if history[0].BrokenExternal != 1 {
		t.Errorf("expected 1 broken external in metadata, got %d", history[0].BrokenExternal)
	}

	status, found, err := db.RecentProbe(ctx, "127.0.0.1", srv.URL+"/ok", time.Hour)
	if err != nil {
		t.Fatalf("failed to query probe: %v", err)
	}
	if !found {
		t.Fatal("expected a recorded probe for the live link")
	}
	if status != http.StatusOK {
		t.Errorf("expected recorded status 200, got %d", status)
	}

	status, found, err = db.RecentProbe(ctx, "127.0.0.1", srv.URL+"/dead", time.Hour)
	if err != nil {
		t.Fatalf("failed to query probe: %v", err)
	}
	if !found {
		t.Fatal("expected a recorded probe for the dead link")
	}
	if status != http.StatusNotFound {
		t.Errorf("expected recorded status 404, got %d", status)
	}
}

func TestAuditEndToEndNoSitemap(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	// A server with no sitemap at any conventional location
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	cfg.Domain = "127.0.0.1"
	cfg.WebsiteURL = srv.URL
	cfg.Timeout = 10 * time.Second
	cfg.SaveToDB = false
	cfg.DBDir = t.TempDir()

	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	auditErr := runAudit(context.Background(), cfg, setupLogger(false))

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()

	if auditErr == nil {
		t.Fatal("expected error for site without sitemap")
	}
	if !strings.Contains(auditErr.Error(), "enumerate sitemap") {
		t.Errorf("unexpected error: %v", auditErr)
	}
}

func TestAuditProbeCacheReuse(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	var flakyBroken atomic.Bool
	flakyBroken.Store(true)

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	notFound(mux, "/robots.txt")
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/page</loc></url>
</urlset>`, srv.URL)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><a href="%s/flaky">Flaky link</a></body></html>`, srv.URL)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, _ *http.Request) {
		if flakyBroken.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	dbDir := t.TempDir()
	reportDir := t.TempDir()

	runOnce := func(name string, cacheAge time.Duration) *report.JSONReport {
		t.Helper()

		cfg := config.NewConfig()
		cfg.Domain = "127.0.0.1"
		cfg.WebsiteURL = srv.URL
		cfg.Timeout = 10 * time.Second
		cfg.JSONReport = true
		cfg.ReportFile = filepath.Join(reportDir, name+".json")
		cfg.SaveToDB = true
		cfg.DBDir = dbDir
		cfg.ProbeCacheAge = cacheAge

		oldStdout := os.Stdout
		r, w, pipeErr := os.Pipe()
		if pipeErr != nil {
			t.Fatalf("failed to create pipe: %v", pipeErr)
		}
		os.Stdout = w

		auditErr := runAudit(context.Background(), cfg, setupLogger(false))

		w.Close()
		os.Stdout = oldStdout

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()

		if auditErr != nil {
			t.Fatalf("runAudit() error = %v", auditErr)
		}

		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report file: %v", err)
		}
		var jr report.JSONReport
		if err := json.Unmarshal(data, &jr); err != nil {
			t.Fatalf("failed to parse report JSON: %v", err)
		}
		return &jr
	}

	// First audit probes fresh and records the 404
	first := runOnce("first", 0)
	if len(first.Report.BrokenInternal) != 1 {
		t.Fatalf("first audit: expected 1 broken link, got %d", len(first.Report.BrokenInternal))
	}
	if first.Report.CachedProbes != 0 {
		t.Errorf("first audit: expected no cached probes, got %d", first.Report.CachedProbes)
	}

	// The link is fixed on the server, but the cached 404 is still fresh
	flakyBroken.Store(false)

	second := runOnce("second", time.Hour)
	if len(second.Report.BrokenInternal) != 1 {
		t.Fatalf("second audit: expected cached broken link, got %d broken", len(second.Report.BrokenInternal))
	}
	if second.Report.BrokenInternal[0].Status != http.StatusNotFound {
		t.Errorf("second audit: expected cached status 404, got %d", second.Report.BrokenInternal[0].Status)
	}
	if second.Report.CachedProbes != 1 {
		t.Errorf("second audit: expected 1 cached probe, got %d", second.Report.CachedProbes)
	}

	// Without the cache the fresh probe sees the fix
	third := runOnce("third", 0)
	if len(third.Report.BrokenInternal) != 0 {
		t.Errorf("third audit: expected no broken links, got %v", third.Report.BrokenInternal)
	}
}

func TestBatchAuditEndToEnd(t *testing.T) {
	// Note: Not using t.Parallel() because this test captures os.Stdout

	// First site: one page with one dead link
	mux1 := http.NewServeMux()
	srv1 := httptest.NewServer(mux1)
	defer srv1.Close()

	notFound(mux1, "/robots.txt")
	mux1.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/page</loc></url>
</urlset>`, srv1.URL)
	})
	mux1.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><a href="%s/gone">Missing</a></body></html>`, srv1.URL)
	})
	mux1.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	// Second site: reached via localhost so its domain differs, one page
	// with one live link
	mux2 := http.NewServeMux()
	srv2 := httptest.NewServer(mux2)
	defer srv2.Close()
	localURL := strings.Replace(srv2.URL, "127.0.0.1", "localhost", 1)

	notFound(mux2, "/robots.txt")
	mux2.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/page</loc></url>
</urlset>`, localURL)
	})
	mux2.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><a href="%s/fine">Fine</a></body></html>`, localURL)
	})
	mux2.HandleFunc("/fine", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	reportDir := t.TempDir()

	cfg := config.NewConfig()
	cfg.Timeout = 10 * time.Second
	cfg.SiteConcurrency = 1
	cfg.CSVReport = true
	cfg.ReportFile = filepath.Join(reportDir, "report.csv")
	cfg.SaveToDB = false
	cfg.DBDir = t.TempDir()
	cfg.SiteConfigs = &config.File{
		Sites: map[string]config.SiteConfig{
			"127.0.0.1": {URL: srv1.URL},
			"localhost": {URL: localURL},
		},
	}

	oldStdout := os.Stdout
	r, w, pipeErr := os.Pipe()
	if pipeErr != nil {
		t.Fatalf("failed to create pipe: %v", pipeErr)
	}
	os.Stdout = w

	auditErr := runAllAudits(context.Background(), cfg, setupLogger(false))

	w.Close()
	os.Stdout = oldStdout

	if auditErr != nil {
		t.Fatalf("runAllAudits() error = %v", auditErr)
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	output := buf.String()

	if !strings.Contains(output, "Auditing 2 sites") {
		t.Errorf("expected batch progress output, got: %s", output)
	}
	if !strings.Contains(output, "Audit completed: 127.0.0.1 (1 broken)") {
		t.Errorf("expected first site result, got: %s", output)
	}
	if !strings.Contains(output, "Audit completed: localhost (0 broken)") {
		t.Errorf("expected second site result, got: %s", output)
	}
	if !strings.Contains(output, "Batch audit completed") {
		t.Errorf("expected batch completion output, got: %s", output)
	}

	// Each site gets its own report file derived from --output
	firstReport, err := os.ReadFile(filepath.Join(reportDir, "report-127.0.0.1.csv"))
	if err != nil {
		t.Fatalf("failed to read first site report: %v", err)
	}
	if !strings.Contains(string(firstReport), "URL,Broken Link URL,Anchor Text,Status Code") {
		t.Errorf("expected CSV header in first report, got: %s", firstReport)
	}
	if !strings.Contains(string(firstReport), srv1.URL+"/gone") {
		t.Errorf("expected broken href in first report, got: %s", firstReport)
	}

	secondReport, err := os.ReadFile(filepath.Join(reportDir, "report-localhost.csv"))
	if err != nil {
		t.Fatalf("failed to read second site report: %v", err)
	}
	if !strings.Contains(string(secondReport), "URL,Broken Link URL,Anchor Text,Status Code") {
		t.Errorf("expected CSV header in second report, got: %s", secondReport)
	}
	if strings.Contains(string(secondReport), "404") {
		t.Errorf("expected no broken links in second report, got: %s", secondReport)
	}
}
