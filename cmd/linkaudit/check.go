package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkaudit/linkaudit/internal/config"
	"github.com/linkaudit/linkaudit/internal/crawler"
	"github.com/linkaudit/linkaudit/internal/links"
	"github.com/linkaudit/linkaudit/internal/model"
	"github.com/linkaudit/linkaudit/internal/probe"
	"github.com/linkaudit/linkaudit/internal/webclient"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [url]",
		Short: "Quick broken-link check of a single page",
		Long: `Check fetches one page, collects the links pointing back into the page's
own domain, and probes each unique link with a HEAD request. Links answering
with a status of 400 or higher, or failing at the transport level, are
reported as broken.

Unlike audit, check does not walk the sitemap, does not distinguish internal
from external links, and does not touch the history database. It is meant as
a fast spot check while editing a single page.

Examples:
  # Check one page
  linkaudit check https://example.com/blog/post

  # The scheme defaults to https
  linkaudit check example.com/blog/post

  # Probe against a different domain than the page's host
  linkaudit check -d example.org https://staging.example.org/post`,
		Args: cobra.ExactArgs(1),
		RunE: runCheckCmd,
	}

	cmd.Flags().StringP("domain", "d", "",
		"Domain links must point into (default: the page's host, www. trimmed)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout (0 disables the timeout)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultCheckConcurrency,
		"Number of concurrent HEAD probes")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	pageURL, err := webclient.NormalizeURL(args[0])
	if err != nil {
		return err
	}

	domain, err := cmd.Flags().GetString("domain")
	if err != nil {
		return err
	}
	if domain == "" {
		domain, err = webclient.DeriveDomain(pageURL)
		if err != nil {
			return err
		}
	}

	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	if timeout < 0 {
		return fmt.Errorf("%w: %s", config.ErrInvalidTimeout, timeout)
	}

	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	if concurrency < 1 {
		return fmt.Errorf("%w: %d", config.ErrInvalidConcurrency, concurrency)
	}

	logger := setupLogger(getVerboseFlag(cmd))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCheck(ctx, pageURL, domain, timeout, concurrency, logger)
}

// runCheck fetches the page, gathers same-domain links, and HEAD-probes them.
func runCheck(ctx context.Context, pageURL, domain string, timeout time.Duration, concurrency int, logger *slog.Logger) error {
	client := webclient.New(webclient.WithTimeout(timeout))

	harvester := crawler.NewHarvester(client,
		crawler.WithUserAgent(config.DefaultUserAgent),
		crawler.WithLogger(logger),
	)

	harvested, _, err := harvester.Harvest(ctx, []string{pageURL})
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	// Keep anchors whose href points back into the domain, in document order.
	// The substring match deliberately catches both absolute links and links
	// via subdomains.
	needle := "//" + domain
	var records []model.LinkRecord
	for _, page := range harvested {
		for _, anchor := range page.Anchors {
			if !anchor.HasHref || !strings.Contains(anchor.Href, needle) {
				continue
			}
			records = append(records, model.LinkRecord{
				SourcePage: page.Page,
				Href:       anchor.Href,
				AnchorText: anchor.Text,
			})
		}
	}

	hrefs := links.UniqueHrefs(records)
	if len(hrefs) == 0 {
		fmt.Printf("No links into %s found on %s\n", domain, pageURL)
		return nil
	}

	fmt.Printf("Checking %d links on %s (concurrency: %d)...\n\n", len(hrefs), pageURL, concurrency)

	prober := probe.NewProber(client,
		probe.WithMethod(http.MethodHead),
		probe.WithLenientStatuses(),
		probe.WithConcurrency(concurrency),
		probe.WithUserAgent(config.DefaultUserAgent),
		probe.WithReferer(pageURL),
		probe.WithLogger(logger),
	)

	result, err := prober.Probe(ctx, hrefs)
	if err != nil {
		return fmt.Errorf("probing failed: %w", err)
	}

	if len(result.Broken) == 0 {
		fmt.Printf("All %d links OK\n", len(hrefs))
		return nil
	}

	rows := links.NewMatcher().Match(records, result.Broken)
	fmt.Printf("%d broken links:\n", len(rows))
	for _, row := range rows {
		fmt.Printf("[%3d] %s\n", row.StatusCode, row.Href)
		if text := strings.TrimSpace(row.AnchorText); text != "" {
			fmt.Printf("      anchor: %q\n", text)
		}
	}

	return nil
}
