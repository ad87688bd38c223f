package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linkaudit/linkaudit/internal/config"
	"github.com/linkaudit/linkaudit/internal/database"
	"github.com/linkaudit/linkaudit/internal/model"
	"github.com/linkaudit/linkaudit/internal/report"
)

// TestNewAuditCmd tests the audit command creation.
func TestNewAuditCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAuditCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "audit [domain] [website-url]" {
			t.Errorf("expected use 'audit [domain] [website-url]', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has long description", func(t *testing.T) {
		t.Parallel()
		if cmd.Long == "" {
			t.Error("expected non-empty long description")
		}
	})

	t.Run("has timeout flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("timeout")
		if flag == nil {
			t.Fatal("expected timeout flag")
		}
		if flag.Shorthand != "t" {
			t.Errorf("expected shorthand 't', got %q", flag.Shorthand)
		}
		if flag.DefValue != "30s" {
			t.Errorf("expected default '30s', got %q", flag.DefValue)
		}
	})

	t.Run("has concurrency flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("concurrency")
		if flag == nil {
			t.Fatal("expected concurrency flag")
		}
		if flag.Shorthand != "n" {
			t.Errorf("expected shorthand 'n', got %q", flag.Shorthand)
		}
		if flag.DefValue != "1" {
			t.Errorf("expected default '1', got %q", flag.DefValue)
		}
	})

	t.Run("has skip-page-errors flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("skip-page-errors")
		if flag == nil {
			t.Fatal("expected skip-page-errors flag")
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has all-occurrences flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("all-occurrences")
		if flag == nil {
			t.Fatal("expected all-occurrences flag")
		}
	})

	t.Run("has all flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("all")
		if flag == nil {
			t.Fatal("expected all flag")
		}
		if flag.Shorthand != "a" {
			t.Errorf("expected shorthand 'a', got %q", flag.Shorthand)
		}
	})

	t.Run("has site-concurrency flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("site-concurrency")
		if flag == nil {
			t.Fatal("expected site-concurrency flag")
		}
		if flag.DefValue != "2" {
			t.Errorf("expected default '2', got %q", flag.DefValue)
		}
	})

	t.Run("has config flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("config")
		if flag == nil {
			t.Fatal("expected config flag")
		}
		if flag.Shorthand != "c" {
			t.Errorf("expected shorthand 'c', got %q", flag.Shorthand)
		}
	})

	t.Run("has json flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("json")
		if flag == nil {
			t.Fatal("expected json flag")
		}
		if flag.Shorthand != "j" {
			t.Errorf("expected shorthand 'j', got %q", flag.Shorthand)
		}
	})

	t.Run("has markdown flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("markdown")
		if flag == nil {
			t.Fatal("expected markdown flag")
		}
		if flag.Shorthand != "m" {
			t.Errorf("expected shorthand 'm', got %q", flag.Shorthand)
		}
	})

	t.Run("has csv flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("csv")
		if flag == nil {
			t.Fatal("expected csv flag")
		}
	})

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
	})

	t.Run("has no-save flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("no-save")
		if flag == nil {
			t.Fatal("expected no-save flag")
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has probe-cache flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("probe-cache")
		if flag == nil {
			t.Fatal("expected probe-cache flag")
		}
		if flag.DefValue != "0s" {
			t.Errorf("expected default '0s', got %q", flag.DefValue)
		}
	})

	t.Run("does not have db-dir flag (uses XDG)", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("db-dir")
		if flag != nil {
			t.Error("db-dir flag should not exist (always uses XDG data directory)")
		}
	})
}

// TestSetupLogger tests the logger setup.
func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("creates logger for verbose mode", func(t *testing.T) {
		t.Parallel()
		logger := setupLogger(true)
		if logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("creates logger for non-verbose mode", func(t *testing.T) {
		t.Parallel()
		logger := setupLogger(false)
		if logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestGetVerboseFlag tests the verbose flag retrieval.
func TestGetVerboseFlag(t *testing.T) {
	t.Run("returns false when flag not set", func(t *testing.T) {
		cmd := NewAuditCmd()
		result := getVerboseFlag(cmd)
		if result {
			t.Error("expected false when flag not set")
		}
	})

	t.Run("returns value from parent verbose flag", func(t *testing.T) {
		root := NewRootCmd()
		// Set verbose flag to true
		_ = root.PersistentFlags().Set("verbose", "true")

		// Get audit subcommand
		auditCmd, _, err := root.Find([]string{"audit"})
		if err != nil {
			t.Fatalf("failed to find audit command: %v", err)
		}

		result := getVerboseFlag(auditCmd)
		if !result {
			t.Error("expected true from parent verbose flag")
		}
	})
}

// TestBuildConfig tests configuration building from flags.
func TestBuildConfig(t *testing.T) {
	t.Run("builds config with default values", func(t *testing.T) {
		cmd := NewAuditCmd()
		cfg, err := buildConfig(cmd, []string{"example.com", "https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg == nil {
			t.Fatal("expected non-nil config")
		}
		if cfg.Domain != "example.com" {
			t.Errorf("expected domain 'example.com', got %q", cfg.Domain)
		}
		if cfg.WebsiteURL != "https://example.com" {
			t.Errorf("expected website URL 'https://example.com', got %q", cfg.WebsiteURL)
		}
		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("expected timeout %s, got %s", config.DefaultTimeout, cfg.Timeout)
		}
		if cfg.ProbeConcurrency != config.DefaultProbeConcurrency {
			t.Errorf("expected concurrency %d, got %d", config.DefaultProbeConcurrency, cfg.ProbeConcurrency)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true by default")
		}
		if cfg.DBDir == "" {
			t.Error("expected DBDir to be set")
		}
		if cfg.SiteConfigs == nil {
			t.Error("expected SiteConfigs to be initialized")
		}
	})

	t.Run("builds config with custom timeout", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("timeout", "60s")
		cfg, err := buildConfig(cmd, []string{"example.com", "https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Timeout != 60*time.Second {
			t.Errorf("expected timeout 60s, got %s", cfg.Timeout)
		}
	})

	t.Run("builds config with custom concurrency", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("concurrency", "8")
		cfg, err := buildConfig(cmd, []string{"example.com", "https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.ProbeConcurrency != 8 {
			t.Errorf("expected concurrency 8, got %d", cfg.ProbeConcurrency)
		}
	})

	t.Run("builds config with JSON flag", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("json", "true")
		cfg, err := buildConfig(cmd, []string{"example.com", "https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cfg.JSONReport {
			t.Error("expected JSONReport to be true")
		}
	})

	t.Run("builds config with output file", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("output", "/tmp/report.json")
		cfg, err := buildConfig(cmd, []string{"example.com", "https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.ReportFile != "/tmp/report.json" {
			t.Errorf("expected ReportFile '/tmp/report.json', got %q", cfg.ReportFile)
		}
	})

	t.Run("builds config with no-save flag", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("no-save", "true")
		cfg, err := buildConfig(cmd, []string{"example.com", "https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false with --no-save")
		}
	})

	t.Run("builds config with probe-cache flag", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("probe-cache", "24h")
		cfg, err := buildConfig(cmd, []string{"example.com", "https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.ProbeCacheAge != 24*time.Hour {
			t.Errorf("expected probe cache age 24h, got %s", cfg.ProbeCacheAge)
		}
	})

	t.Run("builds config with valid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "linkaudit.yaml")

		// Create a valid config file
		content := []byte(`
defaults:
  userAgent: "default-agent"
sites:
  example.com:
    url: https://example.com
    headers:
      Cookie: "session=xyz"
`)
		if err := os.WriteFile(configPath, content, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("config", configPath)
		cfg, err := buildConfig(cmd, []string{"example.com", "https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SiteConfigs == nil {
			t.Fatal("expected SiteConfigs to be loaded")
		}
		if cfg.SiteConfigs.Defaults.UserAgent != "default-agent" {
			t.Errorf("expected default user agent 'default-agent', got %q", cfg.SiteConfigs.Defaults.UserAgent)
		}
		siteCfg := cfg.SiteConfigs.GetSiteConfig("example.com")
		if siteCfg.URL != "https://example.com" {
			t.Errorf("expected site URL 'https://example.com', got %q", siteCfg.URL)
		}
		if siteCfg.Headers["Cookie"] != "session=xyz" {
			t.Errorf("expected Cookie header 'session=xyz', got %q", siteCfg.Headers["Cookie"])
		}
	})

	t.Run("returns error for invalid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.yaml")

		// Create an invalid config file
		content := []byte(`{invalid yaml`)
		if err := os.WriteFile(configPath, content, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("config", configPath)
		_, err := buildConfig(cmd, []string{"example.com", "https://example.com"})
		if err == nil {
			t.Fatal("expected error for invalid config file")
		}
	})

	t.Run("returns error for missing explicit config file", func(t *testing.T) {
		cmd := NewAuditCmd()
		_ = cmd.Flags().Set("config", "/nonexistent/path/linkaudit.yaml")
		_, err := buildConfig(cmd, []string{"example.com", "https://example.com"})
		if err == nil {
			t.Fatal("expected error for missing config file")
		}
		if !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected 'configuration file not found' error, got %v", err)
		}
	})
}

// TestApplySiteConfig tests merging site configuration into the audit config.
func TestApplySiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("no-op for nil SiteConfigs", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SiteConfigs = nil
		before := cfg.UserAgent

		applySiteConfig(cfg, "example.com")
		if cfg.UserAgent != before {
			t.Error("expected config to be unchanged")
		}
	})

	t.Run("overrides user agent and referer", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SiteConfigs = &config.File{
			Sites: map[string]config.SiteConfig{
				"example.com": {
					UserAgent: "site-agent",
					Referer:   "https://referrer.example.org",
				},
			},
		}

		applySiteConfig(cfg, "example.com")
		if cfg.UserAgent != "site-agent" {
			t.Errorf("expected user agent 'site-agent', got %q", cfg.UserAgent)
		}
		if cfg.Referer != "https://referrer.example.org" {
			t.Errorf("expected referer 'https://referrer.example.org', got %q", cfg.Referer)
		}
	})

	t.Run("keeps defaults when site has no overrides", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SiteConfigs = &config.File{
			Sites: map[string]config.SiteConfig{},
		}

		applySiteConfig(cfg, "example.com")
		if cfg.UserAgent != config.DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", cfg.UserAgent)
		}
	})

	t.Run("merges headers without mutating the shared map", func(t *testing.T) {
		t.Parallel()
		shared := map[string]string{"X-Base": "base"}

		cfg := config.NewConfig()
		cfg.Headers = shared
		cfg.SiteConfigs = &config.File{
			Sites: map[string]config.SiteConfig{
				"example.com": {
					Headers: map[string]string{"Cookie": "session=abc"},
				},
			},
		}

		applySiteConfig(cfg, "example.com")
		if cfg.Headers["X-Base"] != "base" {
			t.Error("expected X-Base header to be preserved")
		}
		if cfg.Headers["Cookie"] != "session=abc" {
			t.Error("expected Cookie header to be added")
		}

		// The original map must stay untouched so sibling site configs
		// cloned from the same base do not see each other's headers.
		if _, leaked := shared["Cookie"]; leaked {
			t.Error("expected shared base headers to stay unmodified")
		}
	})
}

// TestSiteReportPath tests per-site report path derivation.
func TestSiteReportPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		domain string
		want   string
	}{
		{
			name:   "path with extension",
			path:   "report.json",
			domain: "example.com",
			want:   "report-example.com.json",
		},
		{
			name:   "nested path",
			path:   "reports/audit.csv",
			domain: "blog.example.org",
			want:   "reports/audit-blog.example.org.csv",
		},
		{
			name:   "path without extension",
			path:   "report",
			domain: "example.com",
			want:   "report-example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := siteReportPath(tt.path, tt.domain)
			if got != tt.want {
				t.Errorf("siteReportPath(%q, %q) = %q, want %q", tt.path, tt.domain, got, tt.want)
			}
		})
	}
}

// TestProbeOutcomes tests probe status reconstruction from a report.
func TestProbeOutcomes(t *testing.T) {
	t.Parallel()

	auditReport := model.NewAuditReport("example.com", "https://example.com")
	auditReport.UniqueInternal = []string{
		"https://example.com/alive",
		"https://example.com/dead",
	}
	auditReport.UniqueExternal = []string{
		"https://other.example.org/page",
	}
	auditReport.BrokenInternal = []model.BrokenLink{
		{Href: "https://example.com/dead", Status: http.StatusNotFound},
	}

	statuses := probeOutcomes(auditReport)

	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses["https://example.com/alive"] != http.StatusOK {
		t.Errorf("expected 200 for alive link, got %d", statuses["https://example.com/alive"])
	}
	if statuses["https://example.com/dead"] != http.StatusNotFound {
		t.Errorf("expected 404 for dead link, got %d", statuses["https://example.com/dead"])
	}
	if statuses["https://other.example.org/page"] != http.StatusOK {
		t.Errorf("expected 200 for external link, got %d", statuses["https://other.example.org/page"])
	}
}

// TestOpenAuditDB tests history database opening.
func TestOpenAuditDB(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	t.Run("returns nil when saving and cache are disabled", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SaveToDB = false
		cfg.ProbeCacheAge = 0

		if db := openAuditDB(cfg, logger); db != nil {
			defer db.Close()
			t.Error("expected nil database when nothing needs it")
		}
	})

	t.Run("opens database when saving is enabled", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SaveToDB = true
		cfg.DBDir = t.TempDir()

		db := openAuditDB(cfg, logger)
		if db == nil {
			t.Fatal("expected non-nil database")
		}
		defer db.Close()
	})

	t.Run("opens database when probe cache is enabled", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SaveToDB = false
		cfg.ProbeCacheAge = time.Hour
		cfg.DBDir = t.TempDir()

		db := openAuditDB(cfg, logger)
		if db == nil {
			t.Fatal("expected non-nil database")
		}
		defer db.Close()
	})

	t.Run("degrades to nil on open failure", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.SaveToDB = true
		// A file path (not a directory) makes MkdirAll fail
		f := filepath.Join(t.TempDir(), "occupied")
		if err := os.WriteFile(f, []byte("x"), 0o600); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
		cfg.DBDir = filepath.Join(f, "sub")

		if db := openAuditDB(cfg, logger); db != nil {
			defer db.Close()
			t.Error("expected nil database on open failure")
		}
	})
}

// TestOutputReport tests the report output functionality.
func TestOutputReport(t *testing.T) {
	t.Run("outputs JSON report to file", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "report.json")

		cfg := &config.Config{
			JSONReport: true,
			ReportFile: outputPath,
		}

		auditReport := model.NewAuditReport("test.example.com", "https://test.example.com")
		auditReport.Pages = []string{"https://test.example.com/"}

		err := outputReport(cfg, auditReport)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Verify file exists
		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			t.Error("expected output file to be created")
		}

		// Verify JSON content
		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}

		var wrapped report.JSONReport
		if err := json.Unmarshal(content, &wrapped); err != nil {
			t.Fatalf("failed to parse JSON: %v", err)
		}
		if wrapped.Report == nil {
			t.Fatal("expected wrapped report")
		}
		if wrapped.Report.Domain != "test.example.com" {
			t.Errorf("expected domain 'test.example.com', got %q", wrapped.Report.Domain)
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "subdir", "nested", "report.json")

		cfg := &config.Config{
			JSONReport: true,
			ReportFile: outputPath,
		}

		auditReport := model.NewAuditReport("test.example.com", "https://test.example.com")

		err := outputReport(cfg, auditReport)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(outputPath); os.IsNotExist(err) {
			t.Error("expected output file to be created in nested directory")
		}
	})

	t.Run("outputs CSV report to file", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "report.csv")

		cfg := &config.Config{
			CSVReport:  true,
			ReportFile: outputPath,
		}

		auditReport := model.NewAuditReport("test.example.com", "https://test.example.com")
		auditReport.InternalRows = []model.ReportRow{
			{
				SourcePage: "https://test.example.com/",
				Href:       "https://test.example.com/gone",
				AnchorText: "Gone",
				StatusCode: http.StatusNotFound,
			},
		}

		err := outputReport(cfg, auditReport)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}

		if !strings.Contains(string(content), "URL,Broken Link URL,Anchor Text,Status Code") {
			t.Errorf("expected CSV header, got %q", string(content))
		}
		if !strings.Contains(string(content), "https://test.example.com/gone") {
			t.Error("expected CSV to contain the broken href")
		}
	})

	t.Run("outputs table to stdout when no file specified", func(t *testing.T) {
		cfg := &config.Config{
			ReportFile: "",
		}

		auditReport := model.NewAuditReport("test.example.com", "https://test.example.com")

		// Capture stdout
		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err := outputReport(cfg, auditReport)

		w.Close()
		os.Stdout = oldStdout

		if err != nil {
			t.Fatalf("outputReport() error = %v", err)
		}

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		output := buf.String()

		if !strings.Contains(output, "test.example.com") {
			t.Errorf("expected output to contain the domain, got %q", output)
		}
	})

	t.Run("outputs Markdown format", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "report.md")

		cfg := &config.Config{
			MarkdownReport: true,
			ReportFile:     outputPath,
		}

		auditReport := model.NewAuditReport("test.example.com", "https://test.example.com")

		err := outputReport(cfg, auditReport)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if len(content) == 0 {
			t.Error("expected non-empty Markdown output")
		}
	})

	t.Run("initializes Summary if nil", func(t *testing.T) {
		tmpDir := t.TempDir()
		outputPath := filepath.Join(tmpDir, "report.json")

		cfg := &config.Config{
			JSONReport: true,
			ReportFile: outputPath,
		}

		auditReport := model.NewAuditReport("test.example.com", "https://test.example.com")
		auditReport.Summary = nil

		err := outputReport(cfg, auditReport)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if auditReport.Summary == nil {
			t.Error("expected Summary to be initialized")
		}
	})
}

// TestSaveAuditReport tests the saveAuditReport function.
func TestSaveAuditReport(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx := context.Background()

	t.Run("returns nil when db is nil", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SaveToDB = true
		auditReport := model.NewAuditReport("example.com", "https://example.com")

		err := saveAuditReport(ctx, cfg, nil, auditReport, logger)
		if err != nil {
			t.Errorf("expected nil error when db is nil, got %v", err)
		}
	})

	t.Run("returns nil when saving is disabled", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		db, err := database.Open(tmpDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		cfg := config.NewConfig()
		cfg.SaveToDB = false
		auditReport := model.NewAuditReport("nosave.example.com", "https://nosave.example.com")

		if err := saveAuditReport(ctx, cfg, db, auditReport, logger); err != nil {
			t.Fatalf("saveAuditReport() error = %v", err)
		}

		history, err := db.AuditHistory(ctx, "nosave.example.com")
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		if len(history) != 0 {
			t.Errorf("expected no saved audits, got %d", len(history))
		}
	})

	t.Run("saves report and probe outcomes to database", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		db, err := database.Open(tmpDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		cfg := config.NewConfig()
		cfg.SaveToDB = true

		auditReport := model.NewAuditReport("save.example.com", "https://save.example.com")
		auditReport.Pages = []string{"https://save.example.com/"}
		auditReport.UniqueInternal = []string{
			"https://save.example.com/alive",
			"https://save.example.com/dead",
		}
		auditReport.BrokenInternal = []model.BrokenLink{
			{Href: "https://save.example.com/dead", Status: http.StatusNotFound},
		}

		if err := saveAuditReport(ctx, cfg, db, auditReport, logger); err != nil {
			t.Fatalf("saveAuditReport() error = %v", err)
		}

		// Verify the audit was saved
		history, err := db.AuditHistory(ctx, "save.example.com")
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 saved audit, got %d", len(history))
		}
		if history[0].BrokenInternal != 1 {
			t.Errorf("expected 1 broken internal link, got %d", history[0].BrokenInternal)
		}

		// Verify probe outcomes were recorded
		status, found, err := db.RecentProbe(ctx, "save.example.com", "https://save.example.com/dead", time.Hour)
		if err != nil {
			t.Fatalf("failed to look up probe: %v", err)
		}
		if !found {
			t.Fatal("expected probe outcome to be recorded")
		}
		if status != http.StatusNotFound {
			t.Errorf("expected recorded status 404, got %d", status)
		}
	})

	t.Run("initializes Summary before saving", func(t *testing.T) {
		t.Parallel()

		tmpDir := t.TempDir()
		db, err := database.Open(tmpDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		cfg := config.NewConfig()
		cfg.SaveToDB = true

		auditReport := model.NewAuditReport("summary.example.com", "https://summary.example.com")
		auditReport.Summary = nil

		if err := saveAuditReport(ctx, cfg, db, auditReport, logger); err != nil {
			t.Fatalf("saveAuditReport() error = %v", err)
		}

		if auditReport.Summary == nil {
			t.Error("expected Summary to be initialized")
		}
	})
}

// TestRunAuditCmdNoArgs tests the audit command with no arguments.
func TestRunAuditCmdNoArgs(t *testing.T) {
	t.Parallel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"audit"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for no arguments")
	}
	if !strings.Contains(err.Error(), "no domain name specified") {
		t.Errorf("expected 'no domain name specified' error, got: %v", err)
	}
}

// TestRunAuditCmdMissingWebsiteURL tests the audit command with only a domain.
func TestRunAuditCmdMissingWebsiteURL(t *testing.T) {
	t.Parallel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"audit", "example.com"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for missing website URL")
	}
	if !strings.Contains(err.Error(), "no website URL specified") {
		t.Errorf("expected 'no website URL specified' error, got: %v", err)
	}
}

// TestRunAuditCmdInvalidWebsiteURL tests the audit command with a URL
// missing its scheme.
func TestRunAuditCmdInvalidWebsiteURL(t *testing.T) {
	t.Parallel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"audit", "example.com", "example.com"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for website URL without scheme")
	}
	if !strings.Contains(err.Error(), "invalid website URL") {
		t.Errorf("expected 'invalid website URL' error, got: %v", err)
	}
}

// TestRunAuditCmdConflictingFormats tests the audit command with both
// --json and --markdown.
func TestRunAuditCmdConflictingFormats(t *testing.T) {
	t.Parallel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"audit", "--json", "--markdown", "example.com", "https://example.com"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for conflicting report formats")
	}
	if !strings.Contains(err.Error(), "conflicting report formats") {
		t.Errorf("expected 'conflicting report formats' error, got: %v", err)
	}
}

// TestRunAuditCmdAllWithArgs tests that --all rejects positional arguments.
func TestRunAuditCmdAllWithArgs(t *testing.T) {
	t.Parallel()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"audit", "--all", "--no-save", "example.com"})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for --all with positional arguments")
	}
	if !strings.Contains(err.Error(), "--all") {
		t.Errorf("expected '--all' error, got: %v", err)
	}
}

// TestRunAuditCmdAllWithoutSites tests that --all requires configured sites.
func TestRunAuditCmdAllWithoutSites(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "empty.yaml")
	if err := os.WriteFile(configPath, []byte("sites: {}\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"audit", "--all", "--no-save", "--config", configPath})

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for --all without configured sites")
	}
	if !strings.Contains(err.Error(), "no sites") {
		t.Errorf("expected 'no sites' error, got: %v", err)
	}
}
