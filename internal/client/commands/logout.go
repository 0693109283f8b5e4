package commands

import (
	"github.com/spf13/cobra"

	"github.com/criteo/social-connect/internal/client/auth"
	"github.com/criteo/social-connect/internal/client/errors"
	"github.com/criteo/social-connect/internal/client/output"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored daemon session",
	Long: `Remove the stored daemon session.

This operation is idempotent: it succeeds even if no session is stored.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := auth.DeleteCredentials(); err != nil {
		return errors.Wrap(err, "failed to remove credentials")
	}

	return render(cmd, map[string]bool{"logged_out": true}, func() {
		output.PrintSuccess(cmd.OutOrStdout(), "Logged out successfully")
	})
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
