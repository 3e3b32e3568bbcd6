package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"supplyguard/internal/bootstrap"
	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
	"supplyguard/internal/usecase/issues"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage supply-chain issues",
}

var issueCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a manual issue",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		ctx := cmd.Context()

		input := issues.ManualIssueInput{}
		input.Title, _ = cmd.Flags().GetString("title")
		input.Description, _ = cmd.Flags().GetString("description")
		input.Severity, _ = cmd.Flags().GetString("severity")
		input.PartID, _ = cmd.Flags().GetString("part")
		input.OrderID, _ = cmd.Flags().GetString("order")
		input.SourceReference, _ = cmd.Flags().GetString("source")
		input.AssignedTo, _ = cmd.Flags().GetString("assignee")

		created, err := app.Issues.CreateManual(ctx, input)
		if err != nil {
			logging.Error(ctx, "create issue failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create issue")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "created issue: %s severity=%s\n", created.IssueID, created.Severity); err != nil {
			return errs.Wrap(err, "write create output")
		}
		return nil
	}),
}

var issueResolveCmd = &cobra.Command{
	Use:   "resolve ISSUE_ID",
	Short: "Mark an issue resolved",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		notes, _ := cmd.Flags().GetString("notes")
		resolved, err := app.Issues.Resolve(cmd.Context(), args[0], notes)
		if err != nil {
			return errs.Wrap(err, "resolve issue")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "resolved issue: %s\n", resolved.IssueID); err != nil {
			return errs.Wrap(err, "write resolve output")
		}
		return nil
	}),
}

var issueStatusCmd = &cobra.Command{
	Use:   "status ISSUE_ID",
	Short: "Show or change the status of an issue",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		target, _ := cmd.Flags().GetString("set")
		if target == "" {
			status, err := app.Issues.Status(cmd.Context(), args[0])
			if err != nil {
				return errs.Wrap(err, "issue status")
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], status)
			return errs.Wrap(err, "write status output")
		}

		updated, err := app.Issues.UpdateStatus(cmd.Context(), args[0], target)
		if err != nil {
			return errs.Wrap(err, "update issue status")
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", updated.IssueID, updated.Status)
		return errs.Wrap(err, "write status output")
	}),
}

var issueShowCmd = &cobra.Command{
	Use:   "show ISSUE_ID",
	Short: "Show one issue",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		found, err := app.Issues.Get(cmd.Context(), args[0])
		if err != nil {
			return errs.Wrap(err, "get issue")
		}
		return printJSON(cmd, found)
	}),
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues, most severe first",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		input := issues.ListInput{}
		input.Statuses, _ = cmd.Flags().GetStringSlice("status")
		input.Severities, _ = cmd.Flags().GetStringSlice("severity")
		all, _ := cmd.Flags().GetBool("all")
		input.ActiveOnly = !all && len(input.Statuses) == 0
		input.Limit, _ = cmd.Flags().GetInt("limit")

		list, err := app.Issues.List(cmd.Context(), input)
		if err != nil {
			return errs.Wrap(err, "list issues")
		}
		return writeIssueTable(cmd, list)
	}),
}

var issueSearchCmd = &cobra.Command{
	Use:   "search TEXT",
	Short: "Find issues whose id, title or description contains TEXT",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		limit, _ := cmd.Flags().GetInt("limit")
		list, err := app.Issues.Search(cmd.Context(), args[0], limit)
		if err != nil {
			return errs.Wrap(err, "search issues")
		}
		return writeIssueTable(cmd, list)
	}),
}

var issueSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count issues by status and active issues by severity",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		summary, err := app.Issues.Summary(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "issue summary")
		}
		return printJSON(cmd, summary)
	}),
}

var issueMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Close active duplicates, keeping the oldest issue per part, order and intent",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		report, err := app.Issues.MergeDuplicates(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "merge duplicates")
		}
		return printJSON(cmd, report)
	}),
}

func writeIssueTable(cmd *cobra.Command, list []issues.Issue) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ISSUE\tSEVERITY\tSTATUS\tCREATED\tTITLE"); err != nil {
		return errs.Wrap(err, "write issue table")
	}
	for _, item := range list {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", item.IssueID, item.Severity, item.Status, item.CreatedAt, item.Title); err != nil {
			return errs.Wrap(err, "write issue table")
		}
	}
	return errs.Wrap(w.Flush(), "flush issue table")
}

func init() {
	rootCmd.AddCommand(issueCmd)
	issueCmd.AddCommand(issueCreateCmd, issueResolveCmd, issueStatusCmd, issueShowCmd, issueListCmd, issueSearchCmd, issueSummaryCmd, issueMergeCmd)

	issueCreateCmd.Flags().String("title", "", "Issue title")
	issueCreateCmd.Flags().String("description", "", "Issue description")
	issueCreateCmd.Flags().String("severity", "MEDIUM", "LOW, MEDIUM, HIGH or CRITICAL")
	issueCreateCmd.Flags().String("part", "", "Affected part id")
	issueCreateCmd.Flags().String("order", "", "Affected order id")
	issueCreateCmd.Flags().String("source", "", "Source reference")
	issueCreateCmd.Flags().String("assignee", "", "Assignee (default system-agent)")
	_ = issueCreateCmd.MarkFlagRequired("title")

	issueResolveCmd.Flags().String("notes", "", "Resolution notes")
	issueStatusCmd.Flags().String("set", "", "New status: OPEN, IN_PROGRESS, RESOLVED or CLOSED")

	issueListCmd.Flags().StringSlice("status", nil, "Filter by status (repeatable)")
	issueListCmd.Flags().StringSlice("severity", nil, "Filter by severity (repeatable)")
	issueListCmd.Flags().Bool("all", false, "Include resolved and closed issues")
	issueListCmd.Flags().Int("limit", 0, "Maximum rows (0 = no limit)")

	issueSearchCmd.Flags().Int("limit", 0, "Maximum rows (default 50)")
}
