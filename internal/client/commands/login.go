package commands

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/criteo/social-connect/internal/client"
	"github.com/criteo/social-connect/internal/client/auth"
	"github.com/criteo/social-connect/internal/client/config"
	"github.com/criteo/social-connect/internal/client/errors"
	"github.com/criteo/social-connect/internal/client/output"
	"github.com/criteo/social-connect/internal/client/prompts"
)

var loginCmd = &cobra.Command{
	Use:   "login [daemon-url]",
	Short: "Authenticate with a social-connectd daemon",
	Long: `Authenticate with a daemon running with basic auth and store the session.

The daemon URL can be provided as an argument, with --url or via the
SOCIAL_CONNECT_URL environment variable; it defaults to the local daemon.

The session is stored:
- macOS: token in Keychain, URL in ~/.config/social-connect/session.yaml
- elsewhere: both in ~/.config/social-connect/session.yaml with 0600 permissions

Only one daemon session is stored at a time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	var serverURL string
	var err error
	if len(args) > 0 {
		serverURL, err = config.ValidateURL(args[0])
	} else {
		serverURL, err = config.ResolveURL(flagURL)
	}
	if err != nil {
		return errors.WithCode(errors.ExitInvalidArguments, err.Error())
	}

	p := prompts.New(cmd.InOrStdin(), cmd.ErrOrStderr())
	username, err := p.Line("Username: ")
	if err != nil {
		return errors.Wrap(err, "failed to read username")
	}
	password, err := p.Secret("Password: ")
	if err != nil {
		return errors.Wrap(err, "failed to read password")
	}

	token := fmt.Sprintf("%s:%s", username, password)

	c := client.NewClient(serverURL, token, flagTimeout, flagVerbose)
	c.Debug = cmd.ErrOrStderr()
	confirmed, err := c.Whoami(cmd.Context())
	if err != nil {
		var apiErr *client.APIError
		if stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return errors.WithCode(errors.ExitAuthError, "authentication failed: invalid credentials")
		}
		return errors.FromAPI(err, "failed to log in")
	}

	if err := auth.SaveCredentials(serverURL, token); err != nil {
		return errors.Wrap(err, "failed to save credentials")
	}

	return render(cmd, map[string]string{"server": serverURL, "user": confirmed}, func() {
		output.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Logged in to %s as %s", serverURL, confirmed))
	})
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
