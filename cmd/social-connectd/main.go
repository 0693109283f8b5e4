package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/criteo/social-connect/internal/cli"
)

var version = "1.0.0"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "social-connectd",
	Short: "Social platform connection daemon",
	Long: `social-connectd keeps the OAuth credentials of connected social platforms
(Instagram, Facebook, X, LinkedIn, YouTube, TikTok), starts authorization flows
in the browser and completes them from the provider callback.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cli.Version = version

	rootCmd.AddCommand(cli.ServerCmd)
	rootCmd.AddCommand(cli.AuthCmd)

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
