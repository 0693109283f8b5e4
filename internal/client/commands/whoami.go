package commands

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/criteo/social-connect/internal/client"
	"github.com/criteo/social-connect/internal/client/errors"
	"github.com/criteo/social-connect/internal/client/output"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show authentication status",
	Long: `Check authentication status by calling the daemon's /api/v1/whoami endpoint.

Resolves the daemon URL and token using normal precedence:
- URL: --url flag > SOCIAL_CONNECT_URL env var > stored URL > http://127.0.0.1:8787
- Token: --token flag > SOCIAL_CONNECT_SESSION_TOKEN env var > stored token`,
	Args: cobra.NoArgs,
	RunE: runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	c, err := getClient(cmd)
	if err != nil {
		return err
	}

	username, err := c.Whoami(cmd.Context())
	var apiErr *client.APIError
	unauthorized := stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
	if err != nil && !unauthorized {
		return errors.FromAPI(err, "failed to check authentication")
	}

	out := cmd.OutOrStdout()
	renderErr := render(cmd, map[string]any{
		"server":        c.BaseURL,
		"authenticated": !unauthorized,
		"username":      username,
	}, func() {
		if unauthorized {
			output.PrintError(out, fmt.Sprintf("Not authenticated to %s", c.BaseURL))
			fmt.Fprintln(out, "Run 'socialctl login' to authenticate")
			return
		}
		output.PrintSuccess(out, fmt.Sprintf("Authenticated to %s as %s", c.BaseURL, username))
	})
	if renderErr != nil {
		return renderErr
	}

	if unauthorized {
		return errors.WithCode(errors.ExitAuthError, "")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
