package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkaudit/linkaudit/internal/config"
	"github.com/linkaudit/linkaudit/internal/database"
	"github.com/linkaudit/linkaudit/internal/log"
	"github.com/linkaudit/linkaudit/internal/model"
	"github.com/linkaudit/linkaudit/internal/pipeline"
	"github.com/linkaudit/linkaudit/internal/report"
	"github.com/linkaudit/linkaudit/internal/webclient"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [domain] [website-url]",
		Short: "Audit a website for broken links",
		Long: `Audit runs the full broken-link pipeline against a website.

It enumerates the site's pages from its XML sitemap, harvests every anchor
on every unique page, classifies each link as internal or external, probes
each unique link with a GET request, and reports the pages, anchor texts,
and status codes of every broken link found.

The domain is the bare domain name used for link classification (e.g.
"example.com"); the website URL is the full URL with scheme where sitemap
discovery starts (e.g. "https://example.com").

Examples:
  # Audit a single website
  linkaudit audit example.com https://example.com

  # Probe links in parallel with a longer request timeout
  linkaudit audit -n 8 -t 60s example.com https://example.com

  # Skip pages that fail to fetch instead of aborting
  linkaudit audit --skip-page-errors example.com https://example.com

  # Write a JSON report to a file
  linkaudit audit --json -o report.json example.com https://example.com

  # Reuse probe results from the last 24 hours
  linkaudit audit --probe-cache 24h example.com https://example.com

  # Audit every site declared in the config file
  linkaudit audit --all

Configuration file (.linkaudit.yaml) example:
  sites:
    example.com:
      url: https://example.com
      headers:
        Cookie: "session_id=abc123"
    blog.example.org:
      url: https://blog.example.org
      referer: https://example.org`,
		Args: cobra.MaximumNArgs(2),
		RunE: runAuditCmd,
	}

	// Audit behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout (0 disables the timeout)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultProbeConcurrency,
		"Number of concurrent liveness probes (1 = sequential)")
	cmd.Flags().Bool("skip-page-errors", false,
		"Skip pages that fail to fetch instead of aborting the audit")
	cmd.Flags().Bool("all-occurrences", false,
		"Report every page referencing a broken link, not just the first")

	// Multi-site flags
	cmd.Flags().BoolP("all", "a", false,
		"Audit every site declared in the configuration file")
	cmd.Flags().Int("site-concurrency", config.DefaultSiteConcurrency,
		"Number of sites audited concurrently with --all")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkaudit.yaml in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown and --csv)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json and --csv)")
	cmd.Flags().Bool("csv", false,
		"Output CSV report (mutually exclusive with --json and --markdown)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not record the audit in the history database")
	cmd.Flags().Duration("probe-cache", 0,
		"Reuse stored probe results newer than this age (0 disables the cache)")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags and positional arguments
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	allSites, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}

	if allSites {
		// Targets come from the configuration file; each one is validated
		// once the site list is known.
		if len(args) > 0 {
			return errors.New("--all audits every configured site and takes no positional arguments")
		}
	} else {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
	}

	// Set up structured logging
	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	if allSites {
		return runAllAudits(ctx, cfg, logger)
	}
	return runAudit(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the positional
// domain and website URL arguments.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Positional arguments: bare domain first, full website URL second.
	// Validate() rejects a missing or malformed pair.
	if len(args) > 0 {
		cfg.Domain = args[0]
	}
	if len(args) > 1 {
		cfg.WebsiteURL = args[1]
	}

	// Get flag values
	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.ProbeConcurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.SkipPageErrors, err = cmd.Flags().GetBool("skip-page-errors")
	if err != nil {
		return nil, err
	}

	cfg.AllOccurrences, err = cmd.Flags().GetBool("all-occurrences")
	if err != nil {
		return nil, err
	}

	cfg.SiteConcurrency, err = cmd.Flags().GetInt("site-concurrency")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.CSVReport, err = cmd.Flags().GetBool("csv")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	cfg.ProbeCacheAge, err = cmd.Flags().GetDuration("probe-cache")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// setupLogger creates the structured logger based on verbosity setting.
// Site configurations may carry session cookies or authorization headers,
// so the logger redacts credential-bearing attributes.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// runAudit executes a single-site audit.
func runAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting audit",
		"domain", cfg.Domain,
		"website", cfg.WebsiteURL,
		"concurrency", cfg.ProbeConcurrency,
		"saveToDB", cfg.SaveToDB,
	)

	db := openAuditDB(cfg, logger)
	if db != nil {
		defer db.Close()
	}

	// Merge site-specific settings (user agent, referer, headers) over the
	// flag-derived configuration.
	applySiteConfig(cfg, cfg.Domain)

	client := webclient.New(webclient.WithTimeout(cfg.Timeout))
	p := createPipelineForTarget(client, logger, cfg, db)

	auditReport := model.NewAuditReport(cfg.Domain, cfg.WebsiteURL)

	fmt.Printf("Auditing %s...\n", cfg.WebsiteURL)
	startTime := time.Now()

	// Execute the pipeline
	if err := p.Execute(ctx, auditReport); err != nil {
		return fmt.Errorf("audit failed for %s: %w", cfg.Domain, err)
	}

	auditReport.Duration = time.Since(startTime)
	auditReport.Summary = model.NewSummary(auditReport)

	fmt.Printf("Audit completed in %s\n\n", auditReport.Duration.Round(time.Millisecond))

	// Generate and output report
	if err := outputReport(cfg, auditReport); err != nil {
		return fmt.Errorf("report failed for %s: %w", cfg.Domain, err)
	}

	// Save to database if enabled
	if err := saveAuditReport(ctx, cfg, db, auditReport, logger); err != nil {
		logger.Error("failed to save audit report", "domain", cfg.Domain, "error", err)
	}

	return nil
}

// runAllAudits audits every site declared in the configuration file,
// concurrently via the batch processor.
func runAllAudits(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	domains := cfg.SiteConfigs.Domains()
	if len(domains) == 0 {
		return errors.New("no sites with a url are declared in the configuration file (run 'linkaudit init' to create one)")
	}

	// Build one audit configuration per site up front so a bad entry fails
	// fast instead of surfacing halfway through the batch.
	siteAudits := make(map[string]*config.Config, len(domains))
	targets := make([]pipeline.Target, 0, len(domains))
	for _, domain := range domains {
		siteCfg := cfg.SiteConfigs.GetSiteConfig(domain)

		siteAudit := *cfg
		siteAudit.Domain = domain
		siteAudit.WebsiteURL = siteCfg.URL
		if cfg.ReportFile != "" {
			siteAudit.ReportFile = siteReportPath(cfg.ReportFile, domain)
		}
		applySiteConfig(&siteAudit, domain)

		if err := siteAudit.Validate(); err != nil {
			return fmt.Errorf("configuration error for %s: %w", domain, err)
		}

		siteAudits[domain] = &siteAudit
		targets = append(targets, pipeline.Target{Domain: domain, WebsiteURL: siteAudit.WebsiteURL})
	}

	logger.Info("starting batch audit",
		"sites", len(targets),
		"concurrency", cfg.SiteConcurrency,
		"saveToDB", cfg.SaveToDB,
	)

	db := openAuditDB(cfg, logger)
	if db != nil {
		defer db.Close()
	}

	client := webclient.New(webclient.WithTimeout(cfg.Timeout))

	// Each target gets a pipeline built from its own site configuration.
	bp := pipeline.NewBatchProcessor(
		func(target pipeline.Target) *pipeline.Pipeline {
			return createPipelineForTarget(client, logger, siteAudits[target.Domain], db)
		},
		pipeline.WithBatchConcurrency(cfg.SiteConcurrency),
		pipeline.WithBatchLogger(logger),
	)

	fmt.Printf("Auditing %d sites (concurrency: %d)...\n\n", len(targets), cfg.SiteConcurrency)
	startTime := time.Now()

	// Process with callback for streaming output
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, targets, func(auditReport *model.AuditReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		if auditReport.Error != nil {
			fmt.Fprintf(os.Stderr, "[%d/%d] Audit failed: %s: %v\n",
				index+1, len(targets), auditReport.Domain, auditReport.Error)
			return
		}

		fmt.Printf("[%d/%d] Audit completed: %s (%d broken)\n",
			index+1, len(targets), auditReport.Domain, auditReport.TotalBroken())

		siteAudit := siteAudits[auditReport.Domain]

		// Generate and output report
		if err := outputReport(siteAudit, auditReport); err != nil {
			logger.Error("report failed", "domain", auditReport.Domain, "error", err)
		}

		// Save to database if enabled
		if err := saveAuditReport(ctx, siteAudit, db, auditReport, logger); err != nil {
			logger.Error("failed to save audit report", "domain", auditReport.Domain, "error", err)
		}
	})

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch audit completed in %s\n", elapsed.Round(time.Millisecond))

	return err
}

// openAuditDB opens the history database when saving or the probe cache
// needs it. Database problems degrade to a warning: the audit itself never
// depends on history being available.
func openAuditDB(cfg *config.Config, logger *slog.Logger) *database.AuditDB {
	if !cfg.SaveToDB && cfg.ProbeCacheAge == 0 {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("audit history database unavailable", "dir", cfg.DBDir, "error", err)
		return nil
	}

	logger.Info("database opened", "dir", cfg.DBDir)
	return db
}

// applySiteConfig merges the domain's site configuration into cfg.
// Site settings override flag-level defaults for this audit. The headers
// map is replaced rather than mutated so configurations cloned from a
// shared base stay independent.
func applySiteConfig(cfg *config.Config, domain string) {
	if cfg.SiteConfigs == nil {
		return
	}

	siteCfg := cfg.SiteConfigs.GetSiteConfig(domain)
	if siteCfg.UserAgent != "" {
		cfg.UserAgent = siteCfg.UserAgent
	}
	if siteCfg.Referer != "" {
		cfg.Referer = siteCfg.Referer
	}
	if len(siteCfg.Headers) > 0 {
		merged := make(map[string]string, len(cfg.Headers)+len(siteCfg.Headers))
		for k, v := range cfg.Headers {
			merged[k] = v
		}
		for k, v := range siteCfg.Headers {
			merged[k] = v
		}
		cfg.Headers = merged
	}
}

// createPipelineForTarget assembles the audit pipeline for one site.
func createPipelineForTarget(client *http.Client, logger *slog.Logger, cfg *config.Config, db *database.AuditDB) *pipeline.Pipeline {
	opts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineLogger(logger),
	}

	// Answer probes from recent history when the cache is enabled
	if db != nil && cfg.ProbeCacheAge > 0 {
		opts = append(opts, pipeline.WithProbeCache(database.NewProbeCache(db, cfg.Domain, cfg.ProbeCacheAge)))
	}

	return pipeline.DefaultPipeline(client, cfg, opts...)
}

// siteReportPath derives a per-site report path from the shared --output
// value so concurrent audits do not overwrite each other's files:
// "reports/audit.json" becomes "reports/audit-example.com.json".
func siteReportPath(path, domain string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "-" + domain + ext
}

// outputReport outputs the audit report in the requested format.
func outputReport(cfg *config.Config, auditReport *model.AuditReport) error {
	// Generate the summary if needed
	if auditReport.Summary == nil {
		auditReport.Summary = model.NewSummary(auditReport)
	}

	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports from authenticated audits may reference members-only
		// pages, so files are only readable by the owner.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	case cfg.CSVReport:
		writer = report.NewCSVWriter(output)
	default:
		// Console table (default)
		writer = report.NewTableWriter(output)
	}

	_, err := writer.Write(auditReport)
	return err
}

// saveAuditReport records the finished audit and its probe outcomes in the
// history database. If db is nil or saving is disabled, this is a no-op.
func saveAuditReport(ctx context.Context, cfg *config.Config, db *database.AuditDB, auditReport *model.AuditReport, logger *slog.Logger) error {
	if db == nil || !cfg.SaveToDB {
		return nil
	}

	// Ensure the summary is generated before saving
	if auditReport.Summary == nil {
		auditReport.Summary = model.NewSummary(auditReport)
	}

	auditID, err := db.SaveAudit(ctx, auditReport)
	if err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	// Record every probe outcome so later runs can reuse them via
	// --probe-cache and comparisons see the latest status per link.
	if err := db.RecordProbes(ctx, auditReport.Domain, probeOutcomes(auditReport)); err != nil {
		return fmt.Errorf("failed to record probe outcomes: %w", err)
	}

	logger.Info("audit report saved to database", "domain", auditReport.Domain, "auditID", auditID)
	return nil
}

// probeOutcomes reconstructs the status of every probed href: hrefs absent
// from the broken lists answered 200.
func probeOutcomes(auditReport *model.AuditReport) map[string]int {
	statuses := make(map[string]int, len(auditReport.UniqueInternal)+len(auditReport.UniqueExternal))
	for _, href := range auditReport.UniqueInternal {
		statuses[href] = http.StatusOK
	}
	for _, href := range auditReport.UniqueExternal {
		statuses[href] = http.StatusOK
	}
	for _, broken := range auditReport.BrokenInternal {
		statuses[broken.Href] = broken.Status
	}
	for _, broken := range auditReport.BrokenExternal {
		statuses[broken.Href] = broken.Status
	}
	return statuses
}
