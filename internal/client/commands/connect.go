package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/criteo/social-connect/internal/client"
	"github.com/criteo/social-connect/internal/client/errors"
	"github.com/criteo/social-connect/internal/client/output"
	"github.com/criteo/social-connect/internal/models"
)

var (
	connectWait         time.Duration
	connectPollInterval = 2 * time.Second
)

var connectCmd = &cobra.Command{
	Use:   "connect <platform>",
	Short: "Start OAuth authorization for a platform",
	Long: `Ask the daemon to open the platform's authorization page in the browser.

When no browser can be opened the authorization URL is printed instead.
With --wait the command polls until the provider callback has connected the
platform or the wait expires.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

var callbackCmd = &cobra.Command{
	Use:   "callback <deep-link-url>",
	Short: "Forward an OAuth redirect URL to the daemon",
	Long: `Forward a provider redirect (for example a custom-scheme deep link such as
myapp://oauth/callback/twitter?code=...&state=...) to the daemon, which
validates the state, exchanges the code and stores the credential.`,
	Args: cobra.ExactArgs(1),
	RunE: runCallback,
}

func init() {
	connectCmd.Flags().DurationVar(&connectWait, "wait", 0, "Wait up to this long for the authorization to complete")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(callbackCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	platform, err := parsePlatformArg(args[0])
	if err != nil {
		return err
	}

	c, err := getClient(cmd)
	if err != nil {
		return err
	}

	result, err := c.Connect(cmd.Context(), platform)
	if err != nil {
		return errors.FromAPI(err, fmt.Sprintf("failed to connect %s", platform))
	}

	out := cmd.OutOrStdout()
	if !flagJSON {
		if result.Launched {
			output.PrintSuccess(out, fmt.Sprintf("Opened the %s authorization page in your browser", platform))
		} else {
			if result.Reason != "" {
				output.PrintWarning(out, result.Reason)
			}
			fmt.Fprintf(out, "Open this URL to authorize %s:\n  %s\n", platform, result.AuthorizationURL)
		}
	}

	if connectWait <= 0 {
		if flagJSON {
			return output.OutputJSON(out, result, nil)
		}
		return nil
	}

	status, err := waitForConnection(cmd.Context(), c, platform, connectWait)
	if err != nil {
		return err
	}
	return render(cmd, status, func() {
		output.PrintSuccess(out, fmt.Sprintf("%s connected as %s", status.Name, accountLabel(status.PlatformUsername, status.PlatformUserID)))
	})
}

// waitForConnection polls the platform until it reports a live connection
func waitForConnection(ctx context.Context, c *client.Client, platform models.Platform, wait time.Duration) (*client.Platform, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(connectPollInterval)
	defer ticker.Stop()

	for {
		status, err := c.GetPlatform(ctx, platform)
		if err == nil && status.Connected && !status.Expired {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.WithCode(errors.ExitGeneralError, fmt.Sprintf("%s was not connected within %s", platform, wait))
		case <-ticker.C:
		}
	}
}

func runCallback(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}

	result, err := c.Callback(cmd.Context(), args[0])
	if err != nil {
		return errors.FromAPI(err, "failed to complete authorization")
	}

	return render(cmd, result, func() {
		output.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Connected %s as %s", result.Platform, accountLabel(result.PlatformUsername, result.PlatformUserID)))
	})
}
