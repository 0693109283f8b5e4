package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/criteo/social-connect/internal/client"
	"github.com/criteo/social-connect/internal/client/errors"
	"github.com/criteo/social-connect/internal/client/output"
	"github.com/criteo/social-connect/internal/client/validation"
	"github.com/criteo/social-connect/internal/models"
)

var platformsConnectedOnly bool

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List supported platforms and their connection status",
	Args:  cobra.NoArgs,
	RunE:  runPlatforms,
}

var statusCmd = &cobra.Command{
	Use:   "status <platform>",
	Short: "Show one platform's connection details",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	platformsCmd.Flags().BoolVar(&platformsConnectedOnly, "connected", false, "Only list connected platforms")

	rootCmd.AddCommand(platformsCmd)
	rootCmd.AddCommand(statusCmd)
}

func runPlatforms(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if platformsConnectedOnly {
		connected, err := c.Connected(cmd.Context())
		if err != nil {
			return errors.FromAPI(err, "failed to list connected platforms")
		}
		return render(cmd, connected, func() {
			if len(connected) == 0 {
				fmt.Fprintln(out, "No connected platforms")
				return
			}
			for _, p := range connected {
				fmt.Fprintln(out, p)
			}
		})
	}

	platforms, err := c.ListPlatforms(cmd.Context())
	if err != nil {
		return errors.FromAPI(err, "failed to list platforms")
	}

	return render(cmd, platforms, func() {
		now := time.Now()
		table := output.NewTableWriter(out)
		table.WriteHeader("PLATFORM", "NAME", "CONNECTED", "ACCOUNT", "EXPIRES", "OAUTH")
		for _, p := range platforms {
			expires := "-"
			if p.Connected {
				expires = output.FormatExpiry(p.ExpiresAt, now)
			}
			table.WriteRow(string(p.Platform), p.Name, connectedLabel(p), output.Dash(p.PlatformUsername), expires, yesNo(p.OAuthConfigured))
		}
		table.Flush()
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	platform, err := parsePlatformArg(args[0])
	if err != nil {
		return err
	}

	c, err := getClient(cmd)
	if err != nil {
		return err
	}

	p, err := c.GetPlatform(cmd.Context(), platform)
	if err != nil {
		return errors.FromAPI(err, fmt.Sprintf("failed to get %s status", platform))
	}

	return render(cmd, p, func() { printStatus(cmd, p) })
}

func printStatus(cmd *cobra.Command, p *client.Platform) {
	table := output.NewTableWriter(cmd.OutOrStdout())
	table.WriteRow("Platform:", fmt.Sprintf("%s (%s)", p.Name, p.Platform))
	table.WriteRow("Connected:", connectedLabel(*p))
	if p.Connected {
		table.WriteRow("Account:", accountLabel(p.PlatformUsername, p.PlatformUserID))
		table.WriteRow("Expires:", output.FormatExpiry(p.ExpiresAt, time.Now()))
		table.WriteRow("Refresh token:", yesNo(p.HasRefreshToken))
		table.WriteRow("Granted scopes:", output.Dash(strings.Join(p.Scopes, " ")))
	}
	table.WriteRow("Requested scopes:", strings.Join(p.RequestedScopes, " "))
	table.WriteRow("OAuth client:", yesNo(p.OAuthConfigured))
	table.Flush()
}

func connectedLabel(p client.Platform) string {
	switch {
	case p.Connected && p.Expired:
		return "expired"
	case p.Connected:
		return "yes"
	default:
		return "no"
	}
}

func accountLabel(username, userID string) string {
	switch {
	case username != "" && userID != "":
		return fmt.Sprintf("%s (%s)", username, userID)
	case username != "":
		return username
	default:
		return output.Dash(userID)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// parsePlatformArg validates a positional platform argument
func parsePlatformArg(arg string) (models.Platform, error) {
	p, err := validation.ValidatePlatform(arg)
	if err != nil {
		return "", errors.WithCode(errors.ExitInvalidArguments, err.Error())
	}
	return p, nil
}
