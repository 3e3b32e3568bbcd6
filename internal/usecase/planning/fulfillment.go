package planning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/errs"
)

type FeasibilityLine struct {
	PartID   string `json:"part_id"`
	PartName string `json:"part_name"`
	PerUnit  int    `json:"per_unit"`
	Required int    `json:"required"`
	OnHand   int    `json:"on_hand"`
	Incoming int    `json:"incoming"`
	// Available is on-hand stock plus open orders due by the target date.
	Available int  `json:"available"`
	Short     bool `json:"short"`
	Deficit   int  `json:"deficit"`
	// StockMissing is set when the part has no stock row and on-hand counted as zero.
	StockMissing bool `json:"stock_missing,omitempty"`
}

type FeasibilityReport struct {
	Model       string            `json:"model"`
	Quantity    int               `json:"quantity"`
	TargetDate  string            `json:"target_date"`
	EvaluatedOn string            `json:"evaluated_on"`
	Feasible    bool              `json:"feasible"`
	Lines       []FeasibilityLine `json:"lines"`
}

// Shortages returns only the lines that cannot be covered.
func (r FeasibilityReport) Shortages() []FeasibilityLine {
	out := make([]FeasibilityLine, 0, len(r.Lines))
	for _, line := range r.Lines {
		if line.Short {
			out = append(out, line)
		}
	}
	return out
}

// CheckFulfillment expands the bill of materials for model and checks each part
// against on-hand stock plus open material orders due on or before targetDate.
func (s *Service) CheckFulfillment(ctx context.Context, model string, quantity int, targetDate time.Time) (FeasibilityReport, error) {
	if err := s.ready(ctx); err != nil {
		return FeasibilityReport{}, err
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return FeasibilityReport{}, errs.Invalid("model is required")
	}
	if quantity <= 0 {
		return FeasibilityReport{}, errs.Invalid("quantity %d must be positive", quantity)
	}
	if targetDate.IsZero() {
		return FeasibilityReport{}, errs.Invalid("target date is required")
	}

	today := s.Today()
	target := targetDate.Format(time.DateOnly)
	if target < today {
		return FeasibilityReport{}, errs.Invalid("target date %s is before %s", target, today)
	}

	bom, err := s.inventory.BOMForModel(ctx, model)
	if err != nil {
		return FeasibilityReport{}, errs.Unavailable(err, "load bill of materials")
	}
	if len(bom) == 0 {
		return FeasibilityReport{}, fmt.Errorf("model %q: %w", model, errs.ErrUnknownModel)
	}

	lines := make([]FeasibilityLine, len(bom))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, row := range bom {
		g.Go(func() error {
			stock, found, err := s.inventory.StockLevel(gctx, row.PartID)
			if err != nil {
				return errs.Wrapf(err, "stock for %s", row.PartID)
			}
			incoming, err := s.inventory.IncomingQuantity(gctx, row.PartID, target)
			if err != nil {
				return errs.Wrapf(err, "incoming for %s", row.PartID)
			}

			line := FeasibilityLine{
				PartID:       row.PartID,
				PartName:     row.PartName,
				PerUnit:      row.QuantityNeeded,
				Required:     quantity * row.QuantityNeeded,
				OnHand:       stock.QuantityAvailable,
				Incoming:     incoming,
				StockMissing: !found,
			}
			line.Available = line.OnHand + line.Incoming
			if line.Available < line.Required {
				line.Short = true
				line.Deficit = line.Required - line.Available
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FeasibilityReport{}, errs.Unavailable(err, "check fulfillment")
	}

	report := FeasibilityReport{
		Model:       model,
		Quantity:    quantity,
		TargetDate:  target,
		EvaluatedOn: today,
		Feasible:    true,
		Lines:       lines,
	}
	for _, line := range lines {
		if line.Short {
			report.Feasible = false
		}
	}

	logging.Debug(
		logging.WithComponent(ctx, "usecase.planning"),
		"fulfillment checked",
		slog.String("model", model),
		slog.Int("quantity", quantity),
		slog.String("target_date", target),
		slog.Bool("feasible", report.Feasible),
	)
	return report, nil
}
