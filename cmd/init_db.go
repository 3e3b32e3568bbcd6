package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"supplyguard/internal/bootstrap"
	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Initialize database schema",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		ctx := cmd.Context()
		logging.Info(ctx, "start init-db")

		if err := app.InitSchema(ctx); err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "database schema initialized: %s\n", app.Config.Database.DSN); err != nil {
			return errs.Wrap(err, "write init-db output")
		}
		return nil
	}),
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load inventory CSV files into the database",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		ctx := cmd.Context()
		dir, _ := cmd.Flags().GetString("dir")

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}
		report, err := app.Seeder.LoadDir(ctx, dir)
		if err != nil {
			logging.Error(ctx, "seed inventory failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "seed inventory")
		}
		return printJSON(cmd, report)
	}),
}

func init() {
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("dir", "data", "Directory containing the inventory CSV files")
}
