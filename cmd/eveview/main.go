// Package main is the entrypoint for the eveview CLI and view server.
package main

import (
	"log/slog"
	"os"

	"github.com/kiranshivaraju/eveview/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	cli.SetupLogging(os.Stderr, slog.LevelInfo)

	if err := NewEveviewCommand().Execute(); err != nil {
		slog.Error("eveview failed", "error", err)
		os.Exit(1)
	}
}

func NewEveviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eveview",
		Short: "Browse, filter and upload images to the EVE results service.",
		Long: `eveview fetches analysis results from the EVE results service.

Run "eveview results" for a one-shot listing, or "eveview serve" for a local
JSON view server that keeps the latest page and drives new fetches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		cli.NewCmdServe(),
		cli.NewCmdResults(),
		cli.NewCmdUpload(),
		cli.NewCmdVersion(),
	)

	return cmd
}
