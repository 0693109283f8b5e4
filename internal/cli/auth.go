package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/criteo/social-connect/internal/auth"
)

var hashUsername string

// AuthCmd represents the auth command
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication utilities",
	Long:  `Utilities for managing the daemon's basic-auth users file.`,
}

// HashPasswordCmd represents the hash-password command
var HashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Generate bcrypt hash for a password",
	Long: `Generate a bcrypt hash for a password to use in users.yaml.
With --username the output is a ready-to-paste users.yaml entry.
When stdin is not a terminal the password is read from its first line.`,
	RunE: runHashPassword,
}

func init() {
	HashPasswordCmd.Flags().StringVarP(&hashUsername, "username", "u", "", "Print a users.yaml entry for this user")
	AuthCmd.AddCommand(HashPasswordCmd)
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if len(password) == 0 {
		return fmt.Errorf("password cannot be empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	out := cmd.OutOrStdout()
	if hashUsername == "" {
		fmt.Fprintln(out, hash)
		return nil
	}

	entry, err := yaml.Marshal(auth.UsersFile{Users: []auth.UserConfig{{Username: hashUsername, Password: hash}}})
	if err != nil {
		return fmt.Errorf("failed to render users.yaml entry: %w", err)
	}
	fmt.Fprint(out, string(entry))
	return nil
}

// readPassword prompts with hidden input on a terminal, or reads one line otherwise
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Enter password: ")
		passwordBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(passwordBytes), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
