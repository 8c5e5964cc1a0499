package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/database"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the catalog schema migrations",
		Long: `Apply the SQL migrations in DB_MIGRATION_FOLDER_PATH to the configured
store. DB_MIGRATION_VERSION pins a target version; DB_MIGRATION_FORCE marks a
dirty schema clean first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			deps, err := app.startDependencies(ctx, dependencyOptions{migrate: true})
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer func() {
				if err := deps.Stop(ctx); err != nil {
					app.Logger.WithError(err).Error("Failed to stop dependencies")
				}
			}()

			latest, err := database.LatestMigrationVersion(app.Config.DBMigrationFolderPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema migrated (latest available version %d)\n", latest)
			return nil
		},
	}
}
