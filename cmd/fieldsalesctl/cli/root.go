// Package cli implements the fieldsalesctl operations commands.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/fieldsales/internal/app"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fieldsalesctl",
		Short:         "Operations helpers for the field sales analytics engine",
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(), newJobsCmd(), newTokenCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig is swapped in tests.
var loadConfig = app.LoadConfig
