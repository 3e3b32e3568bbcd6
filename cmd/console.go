package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"supplyguard/internal/bootstrap"
	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
	"supplyguard/internal/usecase/triageconsole"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the interactive issue triage console",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		all, _ := cmd.Flags().GetBool("all")
		severities, _ := cmd.Flags().GetStringSlice("severity")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 5 * time.Second
		}

		model := triageconsole.New(ctx, app.Issues, triageconsole.Options{
			RefreshInterval: refreshInterval,
			ShowAll:         all,
			Severities:      severities,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run triage console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().Bool("all", false, "Include resolved and closed issues")
	consoleCmd.Flags().StringSlice("severity", nil, "Optional severity filter (CRITICAL|HIGH|MEDIUM|LOW)")
	consoleCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
}
