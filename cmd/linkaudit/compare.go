package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkaudit/linkaudit/internal/config"
	"github.com/linkaudit/linkaudit/internal/database"
	"github.com/linkaudit/linkaudit/internal/model"
)

// Constants for link trend direction and summary messages.
const (
	trendWorsened  = "worsened"
	trendImproved  = "improved"
	trendUnchanged = "unchanged"
	noBrokenLinks  = "No broken links"
)

// NewCompareCmd creates the compare command.
// This command compares audit results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [domain]",
		Short: "Compare audit results with historical data",
		Long: `Compare displays differences between the current and previous audit results.

This command retrieves historical audit data from the database and shows:
- Links that broke since the last audit
- Links that were broken and are now fixed
- Changes in broken link counts per scope

The comparison requires at least two audits in the database for the specified
domain. Use 'linkaudit audit' to run audits and save results.

Examples:
  # Compare the latest two audits for a domain
  linkaudit compare example.com

  # List all audit history for a domain
  linkaudit compare --list example.com

  # Compare with a specific historical audit by ID
  linkaudit compare --with-audit-id 5 example.com

  # Compare with the first audit after a specific date
  linkaudit compare --since "2026-01-01" example.com

  # Output comparison in JSON format
  linkaudit compare --json example.com

  # List all audited domains in the database
  linkaudit compare --list-sites`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List audit history for the specified domain")
	cmd.Flags().BoolP("list-sites", "L", false,
		"List all audited domains in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-audit-id", "i", 0,
		"Compare with a specific audit by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first audit after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Handle --list-sites flag first (requires database but no domain)
	listSites, err := cmd.Flags().GetBool("list-sites")
	if err != nil {
		return err
	}

	// Validate arguments before opening database (unless --list-sites)
	// This prevents database lock issues when validation fails
	var domain string
	if !listSites {
		// Require a domain for other operations
		if len(args) == 0 {
			return errors.New("domain is required (use --list-sites to see audited domains)")
		}
		domain = normalizeDomainArg(args[0])
		if domain == "" {
			return errors.New("domain must not be empty")
		}
	}

	// Use XDG data directory for database
	dbDir := config.XDGDataDir()

	// Open database. Unlike audit, compare is meaningless without history,
	// so an open failure is a hard error here.
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Handle --list-sites flag
	if listSites {
		return listAuditedSites(ctx, db)
	}

	// Handle --list flag
	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listAuditHistory(ctx, db, domain)
	}

	// Get output format flags
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	// Get comparison target flags
	withAuditID, err := cmd.Flags().GetInt64("with-audit-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	// Perform comparison
	return runComparison(ctx, db, domain, withAuditID, sinceDate, jsonOutput, markdownOutput)
}

// normalizeDomainArg mirrors the domain shape audits store: lowercase and
// without a leading "www." prefix.
func normalizeDomainArg(arg string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(arg)), "www.")
}

// listAuditedSites lists all domains that have audit records in the database.
func listAuditedSites(ctx context.Context, db *database.AuditDB) error {
	domains, err := db.ListDomains(ctx)
	if err != nil {
		return fmt.Errorf("failed to list domains: %w", err)
	}

	if len(domains) == 0 {
		fmt.Println("No audited domains found in the database.")
		fmt.Println("\nUse 'linkaudit audit <domain> <website-url>' to audit a website.")
		return nil
	}

	fmt.Printf("Audited domains (%d):\n\n", len(domains))
	for _, domain := range domains {
		fmt.Printf("  • %s\n", domain)
	}
	fmt.Println("\nUse 'linkaudit compare --list <domain>' to see audit history for a domain.")

	return nil
}

// listAuditHistory lists all audit records for a specific domain.
func listAuditHistory(ctx context.Context, db *database.AuditDB, domain string) error {
	history, err := db.AuditHistory(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(history) == 0 {
		fmt.Printf("No audit history found for %s\n", domain)
		fmt.Println("\nUse 'linkaudit audit' to audit this domain.")
		return nil
	}

	fmt.Printf("Audit history for %s (%d audits):\n\n", domain, len(history))
	fmt.Printf("  %-6s  %-20s  %-7s  %s\n", "ID", "Date", "Pages", "Broken Links")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, meta := range history {
		fmt.Printf("  %-6d  %-20s  %-7d  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.Pages,
			formatBrokenSummary(meta),
		)
	}

	fmt.Println("\nUse 'linkaudit compare <domain>' to compare the latest two audits.")
	fmt.Println("Use 'linkaudit compare --with-audit-id <id> <domain>' to compare with a specific audit.")

	return nil
}

// formatBrokenSummary formats an audit's broken link counts into a
// human-readable string.
func formatBrokenSummary(meta database.AuditMetadata) string {
	var parts []string
	if meta.BrokenInternal > 0 {
		parts = append(parts, fmt.Sprintf("I:%d", meta.BrokenInternal))
	}
	if meta.BrokenExternal > 0 {
		parts = append(parts, fmt.Sprintf("E:%d", meta.BrokenExternal))
	}
	if meta.Unreachable > 0 {
		parts = append(parts, fmt.Sprintf("U:%d", meta.Unreachable))
	}

	if len(parts) == 0 {
		return noBrokenLinks
	}
	return strings.Join(parts, " ")
}

// runComparison performs the actual comparison between audit reports.
func runComparison(ctx context.Context, db *database.AuditDB, domain string, withAuditID int64, sinceDate string, jsonOutput, markdownOutput bool) error {
	// Get the audit history
	history, err := db.AuditHistory(ctx, domain)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(history) == 0 {
		return fmt.Errorf("no audit history found for %s", domain)
	}

	if len(history) < 2 && withAuditID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 audits are required for comparison (found %d)", len(history))
	}

	// The latest audit is always the current one
	current, err := db.AuditByID(ctx, history[0].ID)
	if err != nil {
		return fmt.Errorf("failed to load audit %d: %w", history[0].ID, err)
	}
	if current == nil {
		return fmt.Errorf("audit with ID %d not found", history[0].ID)
	}

	var previous *model.AuditReport

	if withAuditID > 0 {
		// Load the audit with the specified ID
		previous, err = db.AuditByID(ctx, withAuditID)
		if err != nil {
			return fmt.Errorf("failed to load audit %d: %w", withAuditID, err)
		}
		if previous == nil {
			return fmt.Errorf("audit with ID %d not found", withAuditID)
		}
		// Validate that the audit ID belongs to the same domain
		if previous.Domain != domain {
			return fmt.Errorf("audit ID %d belongs to %s, not %s", withAuditID, previous.Domain, domain)
		}
	} else if sinceDate != "" {
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// History is sorted newest first, so iterate in reverse to find the
		// oldest audit at or after the date
		var previousID int64
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].Timestamp.Before(parsedDate) {
				previousID = history[i].ID
				break
			}
		}
		if previousID == 0 {
			return fmt.Errorf("no audits found since %s", sinceDate)
		}
		// If only the current audit matches, there is nothing to compare
		if previousID == history[0].ID {
			return fmt.Errorf("only one audit found since %s; at least 2 audits are required for comparison", sinceDate)
		}

		previous, err = db.AuditByID(ctx, previousID)
		if err != nil {
			return fmt.Errorf("failed to load audit %d: %w", previousID, err)
		}
		if previous == nil {
			return fmt.Errorf("audit with ID %d not found", previousID)
		}
	} else {
		// Default: compare with the previous audit
		previous, err = db.AuditByID(ctx, history[1].ID)
		if err != nil {
			return fmt.Errorf("failed to load audit %d: %w", history[1].ID, err)
		}
		if previous == nil {
			return fmt.Errorf("audit with ID %d not found", history[1].ID)
		}
	}

	// Generate comparison result
	comparison := compareAudits(previous, current)

	// Output the result
	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two audit reports.
type ComparisonResult struct {
	// Domain is the audited domain.
	Domain string `json:"domain"`

	// PreviousAudit contains metadata about the previous audit.
	PreviousAudit AuditSnapshot `json:"previous_audit"`

	// CurrentAudit contains metadata about the current audit.
	CurrentAudit AuditSnapshot `json:"current_audit"`

	// NewlyBroken contains links that are broken in the current audit but
	// were not broken in the previous one.
	NewlyBroken []LinkChange `json:"newly_broken,omitempty"`

	// Fixed contains links that were broken in the previous audit and are
	// no longer broken.
	Fixed []LinkChange `json:"fixed,omitempty"`

	// StillBroken is the number of links broken in both audits.
	StillBroken int `json:"still_broken"`

	// Change describes the overall change in broken link counts.
	Change AuditChange `json:"change"`
}

// AuditSnapshot contains metadata about one audit for comparison display.
type AuditSnapshot struct {
	// DateAudited is when the audit was performed.
	DateAudited time.Time `json:"date_audited"`

	// Pages is the number of unique pages visited.
	Pages int `json:"pages"`

	// BrokenInternal is the number of broken internal links.
	BrokenInternal int `json:"broken_internal"`

	// BrokenExternal is the number of broken external links.
	BrokenExternal int `json:"broken_external"`

	// Unreachable is the number of links that failed at the transport level.
	Unreachable int `json:"unreachable"`

	// TotalBroken is the combined broken link count.
	TotalBroken int `json:"total_broken"`
}

// LinkChange describes one link whose probe outcome changed between audits.
type LinkChange struct {
	// Href is the link target.
	Href string `json:"href"`

	// Scope is "internal" or "external".
	Scope string `json:"scope"`

	// Status is the probe status in the audit where the link was broken
	// (current for newly broken, previous for fixed). 0 means the request
	// failed entirely.
	Status int `json:"status"`

	// SourcePage is the first page referencing the link, when known.
	SourcePage string `json:"source_page,omitempty"`

	// AnchorText is the anchor text on the source page, when known.
	AnchorText string `json:"anchor_text,omitempty"`
}

// AuditChange describes the change in broken link counts between audits.
type AuditChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// InternalDelta is the change in broken internal link count.
	InternalDelta int `json:"internal_delta"`

	// ExternalDelta is the change in broken external link count.
	ExternalDelta int `json:"external_delta"`

	// UnreachableDelta is the change in unreachable link count.
	UnreachableDelta int `json:"unreachable_delta"`

	// TotalDelta is the change in total broken link count.
	TotalDelta int `json:"total_delta"`
}

// compareAudits compares two audit reports and generates a comparison result.
func compareAudits(previous, current *model.AuditReport) *ComparisonResult {
	result := &ComparisonResult{
		Domain:        current.Domain,
		PreviousAudit: auditSnapshot(previous),
		CurrentAudit:  auditSnapshot(current),
	}

	// Build broken link maps keyed by scope and href
	previousBroken := brokenByKey(previous)
	currentBroken := brokenByKey(current)

	// Provenance lookups for display
	previousRows := rowsByKey(previous)
	currentRows := rowsByKey(current)

	// Newly broken: in current but not in previous. Keys are sorted so the
	// output order is stable across runs.
	for _, key := range sortedKeys(currentBroken) {
		if _, exists := previousBroken[key]; exists {
			result.StillBroken++
			continue
		}
		result.NewlyBroken = append(result.NewlyBroken, withProvenance(currentBroken[key], currentRows[key]))
	}

	// Fixed: in previous but not in current
	for _, key := range sortedKeys(previousBroken) {
		if _, exists := currentBroken[key]; exists {
			continue
		}
		result.Fixed = append(result.Fixed, withProvenance(previousBroken[key], previousRows[key]))
	}

	result.Change = calculateChange(result.PreviousAudit, result.CurrentAudit)

	return result
}

// auditSnapshot extracts display metadata from a full report.
func auditSnapshot(report *model.AuditReport) AuditSnapshot {
	return AuditSnapshot{
		DateAudited:    report.DateAudited,
		Pages:          len(report.Pages),
		BrokenInternal: len(report.BrokenInternal),
		BrokenExternal: len(report.BrokenExternal),
		Unreachable:    report.UnreachableCount(),
		TotalBroken:    report.TotalBroken(),
	}
}

// brokenByKey indexes a report's broken links by scope and href.
func brokenByKey(report *model.AuditReport) map[string]LinkChange {
	broken := make(map[string]LinkChange, report.TotalBroken())
	for _, b := range report.BrokenInternal {
		broken[linkKey(model.ScopeInternal, b.Href)] = LinkChange{
			Href:   b.Href,
			Scope:  model.ScopeInternal.String(),
			Status: b.Status,
		}
	}
	for _, b := range report.BrokenExternal {
		broken[linkKey(model.ScopeExternal, b.Href)] = LinkChange{
			Href:   b.Href,
			Scope:  model.ScopeExternal.String(),
			Status: b.Status,
		}
	}
	return broken
}

// rowsByKey indexes a report's provenance rows by scope and href, keeping
// the first row per link.
func rowsByKey(report *model.AuditReport) map[string]model.ReportRow {
	rows := make(map[string]model.ReportRow, len(report.InternalRows)+len(report.ExternalRows))
	for _, row := range report.InternalRows {
		key := linkKey(model.ScopeInternal, row.Href)
		if _, exists := rows[key]; !exists {
			rows[key] = row
		}
	}
	for _, row := range report.ExternalRows {
		key := linkKey(model.ScopeExternal, row.Href)
		if _, exists := rows[key]; !exists {
			rows[key] = row
		}
	}
	return rows
}

// linkKey generates a unique key for a broken link for comparison purposes.
func linkKey(scope model.Scope, href string) string {
	return scope.String() + "|" + href
}

// sortedKeys returns the map's keys in lexical order.
func sortedKeys(m map[string]LinkChange) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// withProvenance fills a link change with the source page and anchor text
// from its report row, when one exists.
func withProvenance(change LinkChange, row model.ReportRow) LinkChange {
	change.SourcePage = row.SourcePage
	change.AnchorText = strings.TrimSpace(row.AnchorText)
	return change
}

// calculateChange calculates the change in broken links between two audits.
// Every broken link counts the same; there is no severity weighting.
func calculateChange(previous, current AuditSnapshot) AuditChange {
	change := AuditChange{
		InternalDelta:    current.BrokenInternal - previous.BrokenInternal,
		ExternalDelta:    current.BrokenExternal - previous.BrokenExternal,
		UnreachableDelta: current.Unreachable - previous.Unreachable,
		TotalDelta:       current.TotalBroken - previous.TotalBroken,
	}

	if current.TotalBroken < previous.TotalBroken {
		change.Direction = trendImproved
	} else if current.TotalBroken > previous.TotalBroken {
		change.Direction = trendWorsened
	} else {
		change.Direction = trendUnchanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	fmt.Printf("# Audit Comparison: %s\n\n", result.Domain)

	// Change summary
	fmt.Println("## Summary")
	fmt.Printf("\n**Link Status:** %s\n\n", formatTrend(result.Change.Direction))

	// Audit metadata table
	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Date | %s | %s | - |\n",
		result.PreviousAudit.DateAudited.Format("2006-01-02 15:04"),
		result.CurrentAudit.DateAudited.Format("2006-01-02 15:04"))
	fmt.Printf("| Pages | %d | %d | %s |\n",
		result.PreviousAudit.Pages,
		result.CurrentAudit.Pages,
		formatDelta(result.CurrentAudit.Pages-result.PreviousAudit.Pages))
	fmt.Printf("| Broken internal | %d | %d | %s |\n",
		result.PreviousAudit.BrokenInternal,
		result.CurrentAudit.BrokenInternal,
		formatDelta(result.Change.InternalDelta))
	fmt.Printf("| Broken external | %d | %d | %s |\n",
		result.PreviousAudit.BrokenExternal,
		result.CurrentAudit.BrokenExternal,
		formatDelta(result.Change.ExternalDelta))
	fmt.Printf("| Unreachable | %d | %d | %s |\n",
		result.PreviousAudit.Unreachable,
		result.CurrentAudit.Unreachable,
		formatDelta(result.Change.UnreachableDelta))
	fmt.Printf("| **Total broken** | **%d** | **%d** | **%s** |\n",
		result.PreviousAudit.TotalBroken,
		result.CurrentAudit.TotalBroken,
		formatDelta(result.Change.TotalDelta))

	// Newly broken links
	if len(result.NewlyBroken) > 0 {
		fmt.Printf("\n## Newly Broken (%d)\n\n", len(result.NewlyBroken))
		for _, change := range result.NewlyBroken {
			fmt.Printf("- **[%d]** %s (%s)\n", change.Status, change.Href, change.Scope)
			if change.SourcePage != "" {
				fmt.Printf("  - On: `%s`\n", change.SourcePage)
			}
		}
	}

	// Fixed links
	if len(result.Fixed) > 0 {
		fmt.Printf("\n## Fixed (%d)\n\n", len(result.Fixed))
		for _, change := range result.Fixed {
			fmt.Printf("- ~~**[%d]** %s (%s)~~\n", change.Status, change.Href, change.Scope)
		}
	}

	// Still broken count
	if result.StillBroken > 0 {
		fmt.Printf("\n---\n\n*%d links still broken*\n", result.StillBroken)
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Audit Comparison: %s\n", result.Domain)
	fmt.Println(strings.Repeat("=", 60))

	// Change summary
	fmt.Printf("\nLink Status: %s\n", formatTrend(result.Change.Direction))

	// Audit dates
	fmt.Printf("\nPrevious audit: %s\n", result.PreviousAudit.DateAudited.Format("2006-01-02 15:04:05"))
	fmt.Printf("Current audit:  %s\n", result.CurrentAudit.DateAudited.Format("2006-01-02 15:04:05"))

	// Summary table
	fmt.Println("\nBroken Links Summary:")
	fmt.Printf("  %-12s  %-10s  %-10s  %-10s\n", "Scope", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 48))
	fmt.Printf("  %-12s  %-10d  %-10d  %-10s\n", "Internal",
		result.PreviousAudit.BrokenInternal, result.CurrentAudit.BrokenInternal,
		formatDelta(result.Change.InternalDelta))
	fmt.Printf("  %-12s  %-10d  %-10d  %-10s\n", "External",
		result.PreviousAudit.BrokenExternal, result.CurrentAudit.BrokenExternal,
		formatDelta(result.Change.ExternalDelta))
	fmt.Printf("  %-12s  %-10d  %-10d  %-10s\n", "Unreachable",
		result.PreviousAudit.Unreachable, result.CurrentAudit.Unreachable,
		formatDelta(result.Change.UnreachableDelta))
	fmt.Println("  " + strings.Repeat("-", 48))
	fmt.Printf("  %-12s  %-10d  %-10d  %-10s\n", "Total",
		result.PreviousAudit.TotalBroken, result.CurrentAudit.TotalBroken,
		formatDelta(result.Change.TotalDelta))

	// Newly broken links
	if len(result.NewlyBroken) > 0 {
		fmt.Printf("\nNewly Broken (%d):\n", len(result.NewlyBroken))
		for _, change := range result.NewlyBroken {
			fmt.Printf("  [+] [%3d] %s (%s)\n", change.Status, change.Href, change.Scope)
			if change.SourcePage != "" {
				fmt.Printf("      On: %s\n", change.SourcePage)
			}
		}
	}

	// Fixed links
	if len(result.Fixed) > 0 {
		fmt.Printf("\nFixed (%d):\n", len(result.Fixed))
		for _, change := range result.Fixed {
			fmt.Printf("  [-] [%3d] %s (%s)\n", change.Status, change.Href, change.Scope)
		}
	}

	// Still broken count
	if result.StillBroken > 0 {
		fmt.Printf("\nStill broken: %d links\n", result.StillBroken)
	}

	return nil
}

// formatTrend formats the change direction for display.
func formatTrend(direction string) string {
	switch direction {
	case trendImproved:
		return "IMPROVED (broken links decreased)"
	case trendWorsened:
		return "WORSENED (broken links increased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
