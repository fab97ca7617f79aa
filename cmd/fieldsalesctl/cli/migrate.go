package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/fieldsales/internal/platform/db"
	"github.com/odyssey-erp/fieldsales/migrations"
)

var runMigrations = db.Migrate

func newMigrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the fact store schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(db.MigrateUp), string(db.MigrateDown)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				dsn = cfg.PGDSN
			}
			direction := db.MigrateDirection(args[0])
			applied, err := runMigrations(dsn, migrations.FS, direction)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintln(cmd.OutOrStdout(), "no change")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations %s applied\n", direction)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres DSN (defaults to PG_DSN)")
	return cmd
}
