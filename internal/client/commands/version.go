package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the socialctl version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := map[string]string{
			"version": Version,
			"go":      runtime.Version(),
			"os":      runtime.GOOS + "/" + runtime.GOARCH,
		}
		return render(cmd, info, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "socialctl version %s (%s, %s)\n", Version, info["go"], info["os"])
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
