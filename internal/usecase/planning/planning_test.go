package planning

import (
	"context"
	"errors"
	"testing"
	"time"

	"supplyguard/internal/domain/inventory"
	"supplyguard/internal/errs"
	"supplyguard/internal/ports"
)

var evaluationDay = time.Date(2025, 4, 10, 14, 30, 0, 0, time.UTC)

func scenarioInventory() *fakeInventory {
	inv := newFakeInventory()
	inv.bom = []inventory.BOMLine{
		{Model: "S1_V1", PartID: "P300", PartName: "Frame", QuantityNeeded: 1},
	}
	inv.stock["P300"] = inventory.StockLevel{PartID: "P300", PartName: "Frame", QuantityAvailable: 30}
	inv.orders = []materialOrder{
		{partID: "P300", quantity: 50, due: "2025-04-20", status: inventory.OrderStatusOrdered},
	}
	return inv
}

func newTestService(inv ports.InventoryReader) *Service {
	return NewService(inv, Options{Now: func() time.Time { return evaluationDay }})
}

func date(raw string) time.Time {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCheckFulfillmentFeasibleWithIncomingOrder(t *testing.T) {
	service := newTestService(scenarioInventory())

	report, err := service.CheckFulfillment(context.Background(), "S1_V1", 40, date("2025-04-30"))
	if err != nil {
		t.Fatalf("CheckFulfillment() error = %v", err)
	}
	if !report.Feasible || len(report.Lines) != 1 {
		t.Fatalf("CheckFulfillment() = %+v", report)
	}
	line := report.Lines[0]
	if line.Available != 80 || line.Required != 40 || line.Short {
		t.Fatalf("line = %+v", line)
	}
}

func TestCheckFulfillmentReportsDeficit(t *testing.T) {
	service := newTestService(scenarioInventory())

	report, err := service.CheckFulfillment(context.Background(), "S1_V1", 100, date("2025-04-30"))
	if err != nil {
		t.Fatalf("CheckFulfillment() error = %v", err)
	}
	if report.Feasible {
		t.Fatalf("CheckFulfillment() feasible = true")
	}
	shortages := report.Shortages()
	if len(shortages) != 1 || shortages[0].PartID != "P300" || shortages[0].Deficit != 20 {
		t.Fatalf("shortages = %+v", shortages)
	}
}

func TestCheckFulfillmentIgnoresOrdersAfterTargetAndClosedOrders(t *testing.T) {
	inv := scenarioInventory()
	inv.orders = append(inv.orders,
		materialOrder{partID: "P300", quantity: 500, due: "2025-04-12", status: inventory.OrderStatusDelivered},
		materialOrder{partID: "P300", quantity: 500, due: "2025-04-12", status: inventory.OrderStatusCancelled},
	)
	service := newTestService(inv)

	report, err := service.CheckFulfillment(context.Background(), "S1_V1", 40, date("2025-04-15"))
	if err != nil {
		t.Fatalf("CheckFulfillment() error = %v", err)
	}
	if report.Feasible || report.Lines[0].Incoming != 0 || report.Lines[0].Deficit != 10 {
		t.Fatalf("CheckFulfillment() = %+v", report)
	}
}

func TestCheckFulfillmentMonotonicity(t *testing.T) {
	service := newTestService(scenarioInventory())
	ctx := context.Background()

	wasFeasible := true
	for quantity := 1; quantity <= 120; quantity++ {
		report, err := service.CheckFulfillment(ctx, "S1_V1", quantity, date("2025-04-30"))
		if err != nil {
			t.Fatalf("CheckFulfillment(%d) error = %v", quantity, err)
		}
		if report.Feasible && !wasFeasible {
			t.Fatalf("quantity %d turned feasible after an infeasible smaller quantity", quantity)
		}
		wasFeasible = report.Feasible
	}

	days := []string{"2025-05-30", "2025-04-30", "2025-04-20", "2025-04-19", "2025-04-10"}
	wasFeasible = false
	for i, day := range days {
		report, err := service.CheckFulfillment(ctx, "S1_V1", 60, date(day))
		if err != nil {
			t.Fatalf("CheckFulfillment(%s) error = %v", day, err)
		}
		if i > 0 && report.Feasible && !wasFeasible {
			t.Fatalf("earlier target %s turned feasible", day)
		}
		wasFeasible = report.Feasible
	}
}

func TestCheckFulfillmentValidation(t *testing.T) {
	service := newTestService(scenarioInventory())
	ctx := context.Background()

	testCases := []struct {
		name     string
		model    string
		quantity int
		target   time.Time
		want     error
	}{
		{"zero quantity", "S1_V1", 0, date("2025-04-30"), errs.ErrInvalidRequest},
		{"negative quantity", "S1_V1", -5, date("2025-04-30"), errs.ErrInvalidRequest},
		{"past target", "S1_V1", 1, date("2025-04-09"), errs.ErrInvalidRequest},
		{"blank model", " ", 1, date("2025-04-30"), errs.ErrInvalidRequest},
		{"unknown model", "S9_V9", 1, date("2025-04-30"), errs.ErrUnknownModel},
	}
	for _, tc := range testCases {
		if _, err := service.CheckFulfillment(ctx, tc.model, tc.quantity, tc.target); !errors.Is(err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}

	if _, err := service.CheckFulfillment(ctx, "S1_V1", 1, date("2025-04-10")); err != nil {
		t.Fatalf("target today error = %v", err)
	}
}

func TestCheckFulfillmentSurfacesStoreFailure(t *testing.T) {
	inv := scenarioInventory()
	inv.failWith = errStoreDown
	service := newTestService(inv)

	_, err := service.CheckFulfillment(context.Background(), "S1_V1", 1, date("2025-04-30"))
	if !errors.Is(err, errs.ErrDataUnavailable) || !errors.Is(err, errStoreDown) {
		t.Fatalf("CheckFulfillment() error = %v, want ErrDataUnavailable", err)
	}
}

func TestCheckFulfillmentFlagsMissingStockRow(t *testing.T) {
	inv := scenarioInventory()
	inv.bom = append(inv.bom, inventory.BOMLine{Model: "S1_V1", PartID: "P777", PartName: "Decal", QuantityNeeded: 2})
	service := newTestService(inv)

	report, err := service.CheckFulfillment(context.Background(), "S1_V1", 1, date("2025-04-30"))
	if err != nil {
		t.Fatalf("CheckFulfillment() error = %v", err)
	}
	if report.Feasible {
		t.Fatalf("CheckFulfillment() feasible with a missing part")
	}
	for _, line := range report.Lines {
		if line.PartID == "P777" && (!line.StockMissing || line.Deficit != 2) {
			t.Fatalf("P777 line = %+v", line)
		}
	}
}

func usageInventory() *fakeInventory {
	inv := newFakeInventory()
	inv.bom = []inventory.BOMLine{
		{Model: "S1_V1", PartID: "P301", PartName: "Wheel", QuantityNeeded: 2},
		{Model: "S2_V1", PartID: "P301", PartName: "Wheel", QuantityNeeded: 3},
	}
	inv.stock["P301"] = inventory.StockLevel{PartID: "P301", PartName: "Wheel", QuantityAvailable: 40}
	inv.stock["P999"] = inventory.StockLevel{PartID: "P999", PartName: "Legacy bracket", QuantityAvailable: 12}
	inv.orders = []materialOrder{
		{partID: "P301", quantity: 10, due: "2025-06-01", status: inventory.OrderStatusOrdered},
		{partID: "P301", quantity: 99, due: "2025-04-01", status: inventory.OrderStatusDelivered},
		{partID: "P999", quantity: 5, due: "2025-06-01", status: inventory.OrderStatusPartial},
	}
	inv.sales = []salesOrder{
		{model: "S1_V1", quantity: 10, status: "open"},
		{model: "S1_V1", quantity: 50, status: inventory.OrderStatusDelivered},
		{model: "S2_V1", quantity: 5, status: "confirmed"},
	}
	return inv
}

func TestAnalyzePartUsageNetsDemand(t *testing.T) {
	service := newTestService(usageInventory())

	report, err := service.AnalyzePartUsage(context.Background(), "P301")
	if err != nil {
		t.Fatalf("AnalyzePartUsage() error = %v", err)
	}
	// demand = 10*2 + 5*3 = 35; balance = 40 + 10 - 35 = 15
	if report.TotalDemand != 35 || report.PendingInbound != 10 || report.Balance != 15 {
		t.Fatalf("AnalyzePartUsage() = %+v", report)
	}
	if report.Status != UsageSufficient || report.Surplus() != 15 || report.Deficit() != 0 {
		t.Fatalf("status = %s surplus=%d", report.Status, report.Surplus())
	}
	if len(report.Models) != 2 || report.Models[1].PartDemand != 15 {
		t.Fatalf("models = %+v", report.Models)
	}
}

func TestAnalyzePartUsageShortage(t *testing.T) {
	inv := usageInventory()
	inv.sales = append(inv.sales, salesOrder{model: "S2_V1", quantity: 20, status: "open"})
	service := newTestService(inv)

	report, err := service.AnalyzePartUsage(context.Background(), "P301")
	if err != nil {
		t.Fatalf("AnalyzePartUsage() error = %v", err)
	}
	// demand = 20 + 75 = 95; balance = 50 - 95 = -45
	if report.Status != UsageShortage || report.Deficit() != 45 {
		t.Fatalf("AnalyzePartUsage() = %+v", report)
	}
}

func TestAnalyzePartUsageNeverFabricatesDemandForOrphans(t *testing.T) {
	service := newTestService(usageInventory())

	report, err := service.AnalyzePartUsage(context.Background(), "P999")
	if err != nil {
		t.Fatalf("AnalyzePartUsage() error = %v", err)
	}
	if !report.Orphaned || report.Status != UsageOrphaned || report.TotalDemand != 0 || len(report.Models) != 0 {
		t.Fatalf("AnalyzePartUsage() = %+v", report)
	}
	if report.OnHand != 12 || report.PendingInbound != 5 {
		t.Fatalf("orphan stock = %d inbound = %d", report.OnHand, report.PendingInbound)
	}
}

func TestAnalyzePartUsageRejectsBlankPart(t *testing.T) {
	service := newTestService(usageInventory())
	if _, err := service.AnalyzePartUsage(context.Background(), ""); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("AnalyzePartUsage(\"\") error = %v", err)
	}
}

func TestSafetyStockScenario(t *testing.T) {
	service := newTestService(newFakeInventory())

	result, err := service.SafetyStock(10, 20)
	if err != nil {
		t.Fatalf("SafetyStock() error = %v", err)
	}
	if result.Quantity.StringFixed(2) != "69.22" {
		t.Fatalf("SafetyStock() = %s", result.Quantity)
	}
	if _, err := service.SafetyStock(-3, 20); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("SafetyStock(-3) error = %v", err)
	}
}

func TestLowStockAlertsClassifyUrgency(t *testing.T) {
	inv := newFakeInventory()
	lead := 7
	supplier := "Fast Metals"
	inv.lowStock = []ports.LowStockRow{
		{Stock: inventory.StockLevel{PartID: "P1", QuantityAvailable: 10}, SupplierName: &supplier, LeadTimeDays: &lead},
		{Stock: inventory.StockLevel{PartID: "P2", QuantityAvailable: 30}},
		{Stock: inventory.StockLevel{PartID: "P3", QuantityAvailable: 70}},
	}
	service := newTestService(inv)

	alerts, err := service.LowStockAlerts(context.Background(), 0)
	if err != nil {
		t.Fatalf("LowStockAlerts() error = %v", err)
	}
	if len(alerts) != 2 || alerts[0].Urgency != "CRITICAL" || alerts[1].Urgency != "WARNING" {
		t.Fatalf("LowStockAlerts() = %+v", alerts)
	}
	if *alerts[0].LeadTimeDays != 7 || alerts[1].SupplierName != nil {
		t.Fatalf("supplier details = %+v", alerts)
	}

	if _, err := service.LowStockAlerts(context.Background(), -1); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("LowStockAlerts(-1) error = %v", err)
	}
}

func TestStockByModelBuildableUnits(t *testing.T) {
	inv := usageInventory()
	inv.bom = append(inv.bom, inventory.BOMLine{Model: "S1_V1", PartID: "P999", PartName: "Bracket", QuantityNeeded: 4})
	service := newTestService(inv)

	report, err := service.StockByModel(context.Background(), "S1_V1")
	if err != nil {
		t.Fatalf("StockByModel() error = %v", err)
	}
	// P301: 40/2 = 20, P999: 12/4 = 3
	if report.Buildable != 3 || report.ComponentsAtRisk != 2 {
		t.Fatalf("StockByModel() = %+v", report)
	}

	if _, err := service.StockByModel(context.Background(), "S7_V1"); !errors.Is(err, errs.ErrUnknownModel) {
		t.Fatalf("StockByModel(unknown) error = %v", err)
	}
}

func TestStockSummaryGroupsByLocation(t *testing.T) {
	inv := newFakeInventory()
	hold := "supplier audit"
	inv.stock["A"] = inventory.StockLevel{PartID: "A", Location: "WH1", QuantityAvailable: 10, QualityHoldReason: &hold}
	inv.stock["B"] = inventory.StockLevel{PartID: "B", Location: "WH1", QuantityAvailable: 40}
	inv.stock["C"] = inventory.StockLevel{PartID: "C", Location: "WH2", QuantityAvailable: 100}
	service := newTestService(inv)

	summary, err := service.StockSummary(context.Background())
	if err != nil {
		t.Fatalf("StockSummary() error = %v", err)
	}
	if summary.TotalSKUs != 3 || summary.TotalUnits != 150 || summary.Low != 2 || summary.Critical != 1 || summary.QualityHolds != 1 {
		t.Fatalf("StockSummary() = %+v", summary)
	}
	if len(summary.ByLocation) != 2 || summary.ByLocation[0].Location != "WH1" || summary.ByLocation[0].Units != 50 {
		t.Fatalf("by location = %+v", summary.ByLocation)
	}
}
