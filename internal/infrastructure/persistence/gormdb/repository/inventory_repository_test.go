package repository

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"supplyguard/internal/domain/inventory"
	"supplyguard/internal/infrastructure/persistence/gormdb/model"
)

func seedInventory(t *testing.T, db *gorm.DB) {
	t.Helper()

	rows := []any{
		&[]model.BOMLine{
			{Model: "S1_V1", PartID: "P300", PartName: "Frame", QuantityNeeded: 1},
			{Model: "S1_V1", PartID: "P301", PartName: "Wheel", QuantityNeeded: 2},
			{Model: "S2_V1", PartID: "P301", PartName: "Wheel", QuantityNeeded: 2},
		},
		&[]model.StockLevel{
			{PartID: "P300", PartName: "Frame", Location: "WH1", QuantityAvailable: 30, Status: "ok"},
			{PartID: "P301", PartName: "Wheel", Location: "WH1", QuantityAvailable: 80, Status: "ok"},
			{PartID: "P999", PartName: "Legacy bracket", Location: "WH2", QuantityAvailable: 10, Status: "ok"},
		},
		&[]model.MaterialOrder{
			{OrderID: "O1", PartID: "P300", QuantityOrdered: 50, OrderDate: "2025-04-01", ExpectedDeliveryDate: "2025-04-20", Status: "ordered"},
			{OrderID: "O2", PartID: "P300", QuantityOrdered: 40, OrderDate: "2025-04-01", ExpectedDeliveryDate: "2025-05-20", Status: "ordered"},
			{OrderID: "O3", PartID: "P300", QuantityOrdered: 70, OrderDate: "2025-03-01", ExpectedDeliveryDate: "2025-04-02", Status: "delivered"},
			{OrderID: "O4", PartID: "P300", QuantityOrdered: 90, OrderDate: "2025-04-01", ExpectedDeliveryDate: "2025-04-15", Status: "cancelled"},
			{OrderID: "O5", PartID: "P300", QuantityOrdered: 5, OrderDate: "2025-04-01", ExpectedDeliveryDate: "2025-04-12", Status: "partial"},
		},
		&[]model.SalesOrder{
			{SalesOrderID: "SO1", Series: "S1", Variant: "V1", Quantity: 12, Status: "open"},
			{SalesOrderID: "SO2", Series: "S1", Variant: "V1", Quantity: 8, Status: "delivered"},
			{SalesOrderID: "SO3", Series: "S1", Variant: "V1", Quantity: 3, Status: "cancelled"},
			{SalesOrderID: "SO4", Series: "S1", Variant: "V2", Quantity: 100, Status: "open"},
		},
		&[]model.SupplierTerm{
			{SupplierID: "SUP2", PartID: "P999", SupplierName: "Slow Metals", LeadTimeDays: 30},
			{SupplierID: "SUP1", PartID: "P999", SupplierName: "Fast Metals", LeadTimeDays: 7},
		},
	}
	for _, batch := range rows {
		if err := db.Create(batch).Error; err != nil {
			t.Fatalf("seed %T: %v", batch, err)
		}
	}
}

func TestIncomingQuantityHonoursDateAndStatus(t *testing.T) {
	db := setupDB(t)
	seedInventory(t, db)
	repo := NewInventoryRepository(db)
	ctx := context.Background()

	incoming, err := repo.IncomingQuantity(ctx, "P300", "2025-04-30")
	if err != nil {
		t.Fatalf("IncomingQuantity() error = %v", err)
	}
	if incoming != 55 {
		t.Fatalf("IncomingQuantity() = %d, want 55", incoming)
	}

	pending, err := repo.PendingInbound(ctx, "P300")
	if err != nil {
		t.Fatalf("PendingInbound() error = %v", err)
	}
	if pending != 95 {
		t.Fatalf("PendingInbound() = %d, want 95", pending)
	}

	none, err := repo.IncomingQuantity(ctx, "P404", "2025-04-30")
	if err != nil || none != 0 {
		t.Fatalf("IncomingQuantity(unknown) = %d, %v", none, err)
	}
}

func TestOpenSalesQuantityExcludesClosedOrders(t *testing.T) {
	db := setupDB(t)
	seedInventory(t, db)
	repo := NewInventoryRepository(db)

	got, err := repo.OpenSalesQuantity(context.Background(), inventory.ModelRef{Series: "S1", Variant: "V1"})
	if err != nil {
		t.Fatalf("OpenSalesQuantity() error = %v", err)
	}
	if got != 12 {
		t.Fatalf("OpenSalesQuantity() = %d, want 12", got)
	}
}

func TestBOMLookups(t *testing.T) {
	db := setupDB(t)
	seedInventory(t, db)
	repo := NewInventoryRepository(db)
	ctx := context.Background()

	bom, err := repo.BOMForModel(ctx, "S1_V1")
	if err != nil || len(bom) != 2 {
		t.Fatalf("BOMForModel() = %+v, %v", bom, err)
	}

	lines, err := repo.BOMLinesForPart(ctx, "P301")
	if err != nil {
		t.Fatalf("BOMLinesForPart() error = %v", err)
	}
	if len(lines) != 2 || lines[0].Model != "S1_V1" || lines[1].Model != "S2_V1" {
		t.Fatalf("BOMLinesForPart() = %+v", lines)
	}

	if _, found, err := repo.StockLevel(ctx, "P404"); err != nil || found {
		t.Fatalf("StockLevel(unknown) found=%t err=%v", found, err)
	}
}

func TestLowStockPicksFastestSupplier(t *testing.T) {
	db := setupDB(t)
	seedInventory(t, db)
	repo := NewInventoryRepository(db)

	rows, err := repo.LowStock(context.Background(), 50)
	if err != nil {
		t.Fatalf("LowStock() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("LowStock() len = %d", len(rows))
	}
	if rows[0].Stock.PartID != "P999" || rows[1].Stock.PartID != "P300" {
		t.Fatalf("LowStock() order = %s, %s", rows[0].Stock.PartID, rows[1].Stock.PartID)
	}
	if rows[0].SupplierName == nil || *rows[0].SupplierName != "Fast Metals" || rows[0].LeadTimeDays == nil || *rows[0].LeadTimeDays != 7 {
		t.Fatalf("LowStock() supplier = %v / %v", rows[0].SupplierName, rows[0].LeadTimeDays)
	}
	if rows[1].SupplierName != nil {
		t.Fatalf("LowStock() P300 supplier = %v, want nil", *rows[1].SupplierName)
	}
}
