package planning

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"supplyguard/internal/domain/inventory"
	"supplyguard/internal/errs"
)

const (
	UsageSufficient = "SUFFICIENT"
	UsageShortage   = "SHORTAGE"
	UsageOrphaned   = "ORPHANED"
)

type ModelDemand struct {
	Model      string `json:"model"`
	PerUnit    int    `json:"per_unit"`
	OpenUnits  int    `json:"open_units"`
	PartDemand int    `json:"part_demand"`
}

type UsageReport struct {
	PartID         string        `json:"part_id"`
	PartName       string        `json:"part_name,omitempty"`
	Status         string        `json:"status"`
	Orphaned       bool          `json:"orphaned"`
	Models         []ModelDemand `json:"models"`
	OnHand         int           `json:"on_hand"`
	PendingInbound int           `json:"pending_inbound"`
	TotalDemand    int           `json:"total_demand"`
	// Balance is on-hand plus pending inbound minus demand. It stays zero for orphaned parts.
	Balance      int  `json:"balance"`
	StockMissing bool `json:"stock_missing,omitempty"`
}

func (r UsageReport) Surplus() int {
	if r.Balance > 0 {
		return r.Balance
	}
	return 0
}

func (r UsageReport) Deficit() int {
	if r.Balance < 0 {
		return -r.Balance
	}
	return 0
}

// AnalyzePartUsage nets open sales demand for every model using partID against
// stock and pending inbound. A part in no bill of materials is reported as
// orphaned with zero demand.
func (s *Service) AnalyzePartUsage(ctx context.Context, partID string) (UsageReport, error) {
	if err := s.ready(ctx); err != nil {
		return UsageReport{}, err
	}

	partID = strings.TrimSpace(partID)
	if partID == "" {
		return UsageReport{}, errs.Invalid("part id is required")
	}

	report := UsageReport{PartID: partID, Models: []ModelDemand{}}
	var bom []inventory.BOMLine

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	g.Go(func() error {
		lines, err := s.inventory.BOMLinesForPart(gctx, partID)
		if err != nil {
			return errs.Wrap(err, "bom lines for part")
		}
		bom = lines
		return nil
	})
	g.Go(func() error {
		stock, found, err := s.inventory.StockLevel(gctx, partID)
		if err != nil {
			return errs.Wrap(err, "stock level")
		}
		report.OnHand = stock.QuantityAvailable
		report.PartName = stock.PartName
		report.StockMissing = !found
		return nil
	})
	g.Go(func() error {
		pending, err := s.inventory.PendingInbound(gctx, partID)
		if err != nil {
			return errs.Wrap(err, "pending inbound")
		}
		report.PendingInbound = pending
		return nil
	})
	if err := g.Wait(); err != nil {
		return UsageReport{}, errs.Unavailable(err, "analyze part usage")
	}

	if len(bom) == 0 {
		report.Status = UsageOrphaned
		report.Orphaned = true
		return report, nil
	}
	if report.PartName == "" {
		report.PartName = bom[0].PartName
	}

	demands := make([]ModelDemand, len(bom))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, line := range bom {
		g.Go(func() error {
			ref, err := inventory.ParseModel(line.Model)
			if err != nil {
				return err
			}
			units, err := s.inventory.OpenSalesQuantity(gctx, ref)
			if err != nil {
				return errs.Wrapf(err, "open sales for %s", line.Model)
			}
			demands[i] = ModelDemand{
				Model:      line.Model,
				PerUnit:    line.QuantityNeeded,
				OpenUnits:  units,
				PartDemand: units * line.QuantityNeeded,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return UsageReport{}, errs.Unavailable(err, "net part demand")
	}

	report.Models = demands
	for _, demand := range demands {
		report.TotalDemand += demand.PartDemand
	}
	report.Balance = report.OnHand + report.PendingInbound - report.TotalDemand
	report.Status = UsageSufficient
	if report.Balance < 0 {
		report.Status = UsageShortage
	}
	return report, nil
}
