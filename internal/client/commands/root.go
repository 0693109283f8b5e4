package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/criteo/social-connect/internal/client"
	"github.com/criteo/social-connect/internal/client/auth"
	"github.com/criteo/social-connect/internal/client/config"
	"github.com/criteo/social-connect/internal/client/errors"
	"github.com/criteo/social-connect/internal/client/output"
)

// Version is set at build time
var Version = "dev"

var (
	// Global flags
	flagURL     string
	flagToken   string
	flagJSON    bool
	flagVerbose bool
	flagTimeout time.Duration
	flagYes     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "socialctl",
	Short: "Social Connect CLI client",
	Long: `socialctl talks to a running social-connectd daemon.

It lists platform connections, starts OAuth authorization in the browser,
imports tokens obtained elsewhere, forwards deep-link callbacks and
disconnects platforms.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	return errors.Report(rootCmd.ErrOrStderr(), err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "Daemon URL (or use SOCIAL_CONNECT_URL env var)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Authentication token in 'user:password' format (or use SOCIAL_CONNECT_SESSION_TOKEN env var)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "HTTP request timeout")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Skip confirmation prompts")
}

// getClient resolves the daemon URL and session token from flags, env and the stored session
func getClient(cmd *cobra.Command) (*client.Client, error) {
	serverURL, err := config.ResolveURL(flagURL)
	if err != nil {
		return nil, errors.WithCode(errors.ExitInvalidArguments, err.Error())
	}

	token, err := auth.ResolveToken(flagToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve authentication token")
	}

	// The daemon decides whether a token is needed
	c := client.NewClient(serverURL, token, flagTimeout, flagVerbose)
	c.Debug = cmd.ErrOrStderr()
	return c, nil
}

// render prints data as JSON with --json, otherwise runs human
func render(cmd *cobra.Command, data any, human func()) error {
	if flagJSON {
		return output.OutputJSON(cmd.OutOrStdout(), data, nil)
	}
	human()
	return nil
}
