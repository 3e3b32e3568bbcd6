package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"supplyguard/internal/infrastructure/persistence/gormdb/model"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "seed.sqlite")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDirUpsertsAndSkipsMissingFiles(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	writeFile(t, dir, "stock_levels.csv", "part_id,part_name,location,quantity_available,status,quality_hold_reason\nP300,Frame,WH1,30.0,ok,\nP301,Wheel,WH1,80,hold,scratches\n")
	writeFile(t, dir, "bom_lines.csv", "model,part_id,part_name,quantity_needed\nS1_V1,P300,Frame,1\nS1_V1,P301,Wheel,2\n")

	loader := NewLoader(db)
	report, err := loader.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if report.Rows["stock_levels.csv"] != 2 || report.Rows["bom_lines.csv"] != 2 {
		t.Fatalf("rows = %v", report.Rows)
	}
	if len(report.Skipped) != 3 {
		t.Fatalf("skipped = %v", report.Skipped)
	}

	writeFile(t, dir, "stock_levels.csv", "part_id,part_name,location,quantity_available,status\nP300,Frame,WH1,45,ok\n")
	if _, err := loader.LoadDir(context.Background(), dir); err != nil {
		t.Fatalf("second LoadDir() error = %v", err)
	}

	var stock model.StockLevel
	if err := db.First(&stock, "part_id = ?", "P300").Error; err != nil {
		t.Fatalf("read stock: %v", err)
	}
	if stock.QuantityAvailable != 45 {
		t.Fatalf("quantity = %d, want 45 after upsert", stock.QuantityAvailable)
	}

	var hold model.StockLevel
	if err := db.First(&hold, "part_id = ?", "P301").Error; err != nil {
		t.Fatalf("read stock: %v", err)
	}
	if hold.QualityHoldReason == nil || *hold.QualityHoldReason != "scratches" {
		t.Fatalf("quality hold = %v", hold.QualityHoldReason)
	}
}

func TestLoadDirRejectsBadRowsAtomically(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	writeFile(t, dir, "stock_levels.csv", "part_id,part_name,location,quantity_available,status\nP300,Frame,WH1,30,ok\n")
	writeFile(t, dir, "bom_lines.csv", "model,part_id,part_name,quantity_needed\nS1_V1,P300,Frame,lots\n")

	_, err := NewLoader(db).LoadDir(context.Background(), dir)
	if err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("LoadDir() error = %v, want row 2 error", err)
	}

	var count int64
	if err := db.Model(&model.StockLevel{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("stock rows = %d, want rollback", count)
	}
}

func TestLoadDirRequiresHeaderColumns(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	writeFile(t, dir, "supplier_terms.csv", "supplier_id,part_id\nSUP1,P300\n")

	_, err := NewLoader(db).LoadDir(context.Background(), dir)
	if err == nil || !strings.Contains(err.Error(), "supplier_name") {
		t.Fatalf("LoadDir() error = %v", err)
	}
}

func TestLoadDirReadsSupplierCommercialTerms(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	writeFile(t, dir, "supplier_terms.csv", "supplier_id,part_id,supplier_name,lead_time_days,price_per_unit,min_order_qty,reliability_rating\nSupB,P302,Bolt Supply,15,78.50,50,0.95\nSupC,P303,Spring Co,9,,,\n")

	if _, err := NewLoader(db).LoadDir(context.Background(), dir); err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	var priced model.SupplierTerm
	if err := db.First(&priced, "supplier_id = ? AND part_id = ?", "SupB", "P302").Error; err != nil {
		t.Fatalf("read supplier term: %v", err)
	}
	if !priced.PricePerUnit.Valid || priced.PricePerUnit.Decimal.StringFixed(2) != "78.50" {
		t.Fatalf("price_per_unit = %+v", priced.PricePerUnit)
	}
	if priced.MinOrderQty == nil || *priced.MinOrderQty != 50 {
		t.Fatalf("min_order_qty = %v", priced.MinOrderQty)
	}
	if priced.ReliabilityRating == nil || *priced.ReliabilityRating != 0.95 {
		t.Fatalf("reliability_rating = %v", priced.ReliabilityRating)
	}

	var bare model.SupplierTerm
	if err := db.First(&bare, "supplier_id = ?", "SupC").Error; err != nil {
		t.Fatalf("read supplier term: %v", err)
	}
	if bare.PricePerUnit.Valid || bare.MinOrderQty != nil || bare.ReliabilityRating != nil {
		t.Fatalf("blank optional columns = %+v", bare)
	}
}

func TestLoadDirRejectsReliabilityOutOfRange(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	writeFile(t, dir, "supplier_terms.csv", "supplier_id,part_id,supplier_name,lead_time_days,reliability_rating\nSupB,P302,Bolt Supply,15,1.4\n")

	_, err := NewLoader(db).LoadDir(context.Background(), dir)
	if err == nil || !strings.Contains(err.Error(), "reliability_rating") {
		t.Fatalf("LoadDir() error = %v, want reliability_rating error", err)
	}
}
