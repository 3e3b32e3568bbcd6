package planning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"supplyguard/internal/domain/inventory"
	"supplyguard/internal/errs"
)

type LowStockAlert struct {
	PartID       string  `json:"part_id"`
	PartName     string  `json:"part_name"`
	Location     string  `json:"location"`
	Quantity     int     `json:"quantity"`
	Urgency      string  `json:"urgency"`
	SupplierName *string `json:"supplier_name"`
	LeadTimeDays *int    `json:"lead_time_days"`
}

// LowStockAlerts lists parts under threshold, lowest stock first. Zero uses the default threshold.
func (s *Service) LowStockAlerts(ctx context.Context, threshold int) ([]LowStockAlert, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if threshold < 0 {
		return nil, errs.Invalid("threshold %d must not be negative", threshold)
	}
	if threshold == 0 {
		threshold = inventory.DefaultLowStockThreshold
	}

	rows, err := s.inventory.LowStock(ctx, threshold)
	if err != nil {
		return nil, errs.Unavailable(err, "low stock alerts")
	}

	alerts := make([]LowStockAlert, 0, len(rows))
	for _, row := range rows {
		urgency := "WARNING"
		if row.Stock.QuantityAvailable < inventory.CriticalStockThreshold {
			urgency = "CRITICAL"
		}
		alerts = append(alerts, LowStockAlert{
			PartID:       row.Stock.PartID,
			PartName:     row.Stock.PartName,
			Location:     row.Stock.Location,
			Quantity:     row.Stock.QuantityAvailable,
			Urgency:      urgency,
			SupplierName: row.SupplierName,
			LeadTimeDays: row.LeadTimeDays,
		})
	}
	return alerts, nil
}

type ModelStockLine struct {
	PartID    string `json:"part_id"`
	PartName  string `json:"part_name"`
	OnHand    int    `json:"on_hand"`
	PerUnit   int    `json:"per_unit"`
	Buildable int    `json:"buildable"`
	Urgency   string `json:"urgency"`
}

type ModelStockReport struct {
	Model string           `json:"model"`
	Lines []ModelStockLine `json:"lines"`
	// Buildable is the number of complete units on-hand stock supports.
	Buildable        int `json:"buildable"`
	ComponentsAtRisk int `json:"components_at_risk"`
}

func (s *Service) StockByModel(ctx context.Context, model string) (ModelStockReport, error) {
	if err := s.ready(ctx); err != nil {
		return ModelStockReport{}, err
	}

	model = strings.TrimSpace(model)
	if model == "" {
		return ModelStockReport{}, errs.Invalid("model is required")
	}

	bom, err := s.inventory.BOMForModel(ctx, model)
	if err != nil {
		return ModelStockReport{}, errs.Unavailable(err, "load bill of materials")
	}
	if len(bom) == 0 {
		return ModelStockReport{}, fmt.Errorf("model %q: %w", model, errs.ErrUnknownModel)
	}

	lines := make([]ModelStockLine, len(bom))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, row := range bom {
		g.Go(func() error {
			stock, _, err := s.inventory.StockLevel(gctx, row.PartID)
			if err != nil {
				return errs.Wrapf(err, "stock for %s", row.PartID)
			}
			line := ModelStockLine{
				PartID:   row.PartID,
				PartName: row.PartName,
				OnHand:   stock.QuantityAvailable,
				PerUnit:  row.QuantityNeeded,
				Urgency:  inventory.Urgency(stock.QuantityAvailable),
			}
			if row.QuantityNeeded > 0 {
				line.Buildable = stock.QuantityAvailable / row.QuantityNeeded
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ModelStockReport{}, errs.Unavailable(err, "stock by model")
	}

	report := ModelStockReport{Model: model, Lines: lines, Buildable: lines[0].Buildable}
	for _, line := range lines {
		if line.Buildable < report.Buildable {
			report.Buildable = line.Buildable
		}
		if line.Urgency != "OK" {
			report.ComponentsAtRisk++
		}
	}
	return report, nil
}

type LocationTotal struct {
	Location string `json:"location"`
	Parts    int    `json:"parts"`
	Units    int    `json:"units"`
}

type StockSummary struct {
	TotalSKUs    int             `json:"total_skus"`
	TotalUnits   int             `json:"total_units"`
	Low          int             `json:"low"`
	Critical     int             `json:"critical"`
	QualityHolds int             `json:"quality_holds"`
	ByLocation   []LocationTotal `json:"by_location"`
}

func (s *Service) StockSummary(ctx context.Context) (StockSummary, error) {
	if err := s.ready(ctx); err != nil {
		return StockSummary{}, err
	}

	levels, err := s.inventory.ListStockLevels(ctx)
	if err != nil {
		return StockSummary{}, errs.Unavailable(err, "stock summary")
	}

	summary := StockSummary{ByLocation: []LocationTotal{}}
	byLocation := make(map[string]*LocationTotal)
	for _, level := range levels {
		summary.TotalSKUs++
		summary.TotalUnits += level.QuantityAvailable
		if level.QuantityAvailable < inventory.DefaultLowStockThreshold {
			summary.Low++
		}
		if level.QuantityAvailable < inventory.CriticalStockThreshold {
			summary.Critical++
		}
		if level.QualityHoldReason != nil && strings.TrimSpace(*level.QualityHoldReason) != "" {
			summary.QualityHolds++
		}

		total, ok := byLocation[level.Location]
		if !ok {
			total = &LocationTotal{Location: level.Location}
			byLocation[level.Location] = total
		}
		total.Parts++
		total.Units += level.QuantityAvailable
	}

	for _, total := range byLocation {
		summary.ByLocation = append(summary.ByLocation, *total)
	}
	sort.Slice(summary.ByLocation, func(i, j int) bool {
		return summary.ByLocation[i].Location < summary.ByLocation[j].Location
	})
	return summary, nil
}
