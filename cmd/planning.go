package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"supplyguard/internal/bootstrap"
	"supplyguard/internal/errs"
)

var fulfillmentCmd = &cobra.Command{
	Use:   "fulfillment",
	Short: "Fulfillment feasibility checks",
}

var fulfillmentCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a quantity of a model can be built by a date",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		model, _ := cmd.Flags().GetString("model")
		quantity, _ := cmd.Flags().GetInt("quantity")
		rawDate, _ := cmd.Flags().GetString("date")

		target, err := parseTargetDate(rawDate, app.Clock())
		if err != nil {
			return err
		}
		report, err := app.Planning.CheckFulfillment(cmd.Context(), model, quantity, target)
		if err != nil {
			return errs.Wrap(err, "check fulfillment")
		}
		return printJSON(cmd, report)
	}),
}

var partsCmd = &cobra.Command{
	Use:   "parts",
	Short: "Part demand and stock reports",
}

var partsUsageCmd = &cobra.Command{
	Use:   "usage PART_ID",
	Short: "Net open sales demand for a part against stock and inbound orders",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		report, err := app.Planning.AnalyzePartUsage(cmd.Context(), args[0])
		if err != nil {
			return errs.Wrap(err, "analyze part usage")
		}
		return printJSON(cmd, report)
	}),
}

var partsLowStockCmd = &cobra.Command{
	Use:   "low-stock",
	Short: "List parts below a stock threshold",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		threshold, _ := cmd.Flags().GetInt("threshold")
		alerts, err := app.Planning.LowStockAlerts(cmd.Context(), threshold)
		if err != nil {
			return errs.Wrap(err, "low stock alerts")
		}
		return printJSON(cmd, alerts)
	}),
}

var partsByModelCmd = &cobra.Command{
	Use:   "by-model MODEL",
	Short: "Show stock and buildable units for every part of a model",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, app *bootstrap.App) error {
		report, err := app.Planning.StockByModel(cmd.Context(), args[0])
		if err != nil {
			return errs.Wrap(err, "stock by model")
		}
		return printJSON(cmd, report)
	}),
}

var partsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize stock by location",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		summary, err := app.Planning.StockSummary(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "stock summary")
		}
		return printJSON(cmd, summary)
	}),
}

var safetyStockCmd = &cobra.Command{
	Use:   "safety-stock",
	Short: "Estimate safety stock at a 95% service level",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		leadTime, _ := cmd.Flags().GetFloat64("lead-time")
		demand, _ := cmd.Flags().GetFloat64("demand")

		result, err := app.Planning.SafetyStock(leadTime, demand)
		if err != nil {
			return errs.Wrap(err, "safety stock")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "safety stock: %s units (lead time %g days, demand %g/day)\n", result.Quantity.StringFixed(2), leadTime, demand); err != nil {
			return errs.Wrap(err, "write safety-stock output")
		}
		return nil
	}),
}

// parseTargetDate reads YYYY-MM-DD in today's location. Blank means today.
func parseTargetDate(raw string, today time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today, nil
	}
	target, err := time.ParseInLocation(time.DateOnly, raw, today.Location())
	if err != nil {
		return time.Time{}, errs.Invalid("target date %q must be YYYY-MM-DD", raw)
	}
	return target, nil
}

func init() {
	rootCmd.AddCommand(fulfillmentCmd)
	fulfillmentCmd.AddCommand(fulfillmentCheckCmd)
	fulfillmentCheckCmd.Flags().String("model", "", "Model identifier, e.g. S1_V1")
	fulfillmentCheckCmd.Flags().Int("quantity", 0, "Units to build")
	fulfillmentCheckCmd.Flags().String("date", "", "Target date YYYY-MM-DD (default today)")
	_ = fulfillmentCheckCmd.MarkFlagRequired("model")
	_ = fulfillmentCheckCmd.MarkFlagRequired("quantity")

	rootCmd.AddCommand(partsCmd)
	partsCmd.AddCommand(partsUsageCmd, partsLowStockCmd, partsByModelCmd, partsSummaryCmd)
	partsLowStockCmd.Flags().Int("threshold", 0, "Stock threshold (default 50)")

	rootCmd.AddCommand(safetyStockCmd)
	safetyStockCmd.Flags().Float64("lead-time", 0, "Supplier lead time in days")
	safetyStockCmd.Flags().Float64("demand", 0, "Average daily demand")
	_ = safetyStockCmd.MarkFlagRequired("lead-time")
	_ = safetyStockCmd.MarkFlagRequired("demand")
}
