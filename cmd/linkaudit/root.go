// Package main provides the entry point for the linkaudit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for linkaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkaudit",
		Short: "Broken-link auditor for websites",
		Long: `linkaudit audits a website for broken links.

It reads the site's XML sitemap to enumerate every page, harvests every
anchor on every unique page, classifies each link as internal or external,
probes each unique link for liveness, and reports where the broken ones
occur: the page, the link target, the anchor text, and the status code.

Finished audits are stored in a local database so runs can be compared
over time with 'linkaudit compare'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
