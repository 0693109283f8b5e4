package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/criteo/social-connect/internal/client/errors"
	"github.com/criteo/social-connect/internal/client/output"
	"github.com/criteo/social-connect/internal/client/prompts"
	"github.com/criteo/social-connect/internal/client/validation"
	"github.com/criteo/social-connect/internal/models"
)

var (
	importRefreshToken string
	importExpiresIn    string
	importScopes       []string
	importUserID       string
	importUsername     string
)

var importCmd = &cobra.Command{
	Use:   "import <platform>",
	Short: "Store a token obtained outside the daemon",
	Long: `Store an access token obtained outside the daemon, for example from a
provider's developer console. The access token is read from a hidden prompt,
or from the first line of stdin when it is not a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <platform>",
	Short: "Remove a platform's stored credentials",
	Long: `Remove a platform's stored credentials. Disconnecting a platform that is not
connected succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: runDisconnect,
}

func init() {
	importCmd.Flags().StringVar(&importRefreshToken, "refresh-token", "", "Refresh token")
	importCmd.Flags().StringVar(&importExpiresIn, "expires-in", "", "Token lifetime in seconds or as a duration (e.g. 2h); omit for no expiry")
	importCmd.Flags().StringSliceVar(&importScopes, "scopes", nil, "Granted scopes (repeatable or comma-separated)")
	importCmd.Flags().StringVar(&importUserID, "user-id", "", "Platform account id")
	importCmd.Flags().StringVar(&importUsername, "username", "", "Platform account name")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(disconnectCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	platform, err := parsePlatformArg(args[0])
	if err != nil {
		return err
	}

	expiresAt, err := validation.ParseExpiresIn(importExpiresIn, time.Now())
	if err != nil {
		return errors.WithCode(errors.ExitInvalidArguments, err.Error())
	}

	accessToken, err := prompts.New(cmd.InOrStdin(), cmd.ErrOrStderr()).Secret("Access token: ")
	if err != nil {
		return errors.Wrap(err, "failed to read access token")
	}
	if accessToken == "" {
		return errors.WithCode(errors.ExitInvalidArguments, "access token cannot be empty")
	}

	c, err := getClient(cmd)
	if err != nil {
		return err
	}

	cred := &models.PlatformCredential{
		Platform:         platform,
		AccessToken:      accessToken,
		RefreshToken:     importRefreshToken,
		ExpiresAt:        expiresAt,
		PlatformUserID:   importUserID,
		PlatformUsername: importUsername,
		Scopes:           validation.ParseScopes(importScopes),
	}
	status, err := c.ImportCredentials(cmd.Context(), platform, cred)
	if err != nil {
		return errors.FromAPI(err, fmt.Sprintf("failed to import %s credentials", platform))
	}

	return render(cmd, status, func() {
		output.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Stored %s credentials (expires: %s)", status.Name, output.FormatExpiry(status.ExpiresAt, time.Now())))
	})
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	platform, err := parsePlatformArg(args[0])
	if err != nil {
		return err
	}

	cfg, _ := models.LookupPlatformConfig(platform)
	if !flagYes && !prompts.New(cmd.InOrStdin(), cmd.ErrOrStderr()).ConfirmDisconnect(cfg.Name) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled")
		return nil
	}

	c, err := getClient(cmd)
	if err != nil {
		return err
	}

	if err := c.Disconnect(cmd.Context(), platform); err != nil {
		return errors.FromAPI(err, fmt.Sprintf("failed to disconnect %s", platform))
	}

	return render(cmd, map[string]any{"platform": platform, "disconnected": true}, func() {
		output.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Disconnected %s", cfg.Name))
	})
}
