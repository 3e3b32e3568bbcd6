package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"supplyguard/internal/domain/inventory"
	"supplyguard/internal/errs"
	"supplyguard/internal/infrastructure/persistence/gormdb/model"
	"supplyguard/internal/ports"
)

type InventoryRepository struct {
	db *gorm.DB
}

var _ ports.InventoryReader = (*InventoryRepository)(nil)

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) BOMForModel(ctx context.Context, modelID string) ([]inventory.BOMLine, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.BOMLine
	if err := db.Model(&model.BOMLine{}).
		Where("model = ?", strings.TrimSpace(modelID)).
		Order("part_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query bom by model")
	}
	return mapBOMLines(rows), nil
}

func (r *InventoryRepository) BOMLinesForPart(ctx context.Context, partID string) ([]inventory.BOMLine, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.BOMLine
	if err := db.Model(&model.BOMLine{}).
		Where("part_id = ?", strings.TrimSpace(partID)).
		Order("model asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query bom lines by part")
	}
	return mapBOMLines(rows), nil
}

func (r *InventoryRepository) StockLevel(ctx context.Context, partID string) (inventory.StockLevel, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return inventory.StockLevel{}, false, err
	}

	var rows []model.StockLevel
	if err := db.Where("part_id = ?", strings.TrimSpace(partID)).Limit(1).Find(&rows).Error; err != nil {
		return inventory.StockLevel{}, false, errs.Wrap(err, "query stock level")
	}
	if len(rows) == 0 {
		return inventory.StockLevel{}, false, nil
	}
	return mapStockLevel(rows[0]), true, nil
}

func (r *InventoryRepository) ListStockLevels(ctx context.Context) ([]inventory.StockLevel, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.StockLevel
	if err := db.Order("part_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query stock levels")
	}

	items := make([]inventory.StockLevel, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapStockLevel(row))
	}
	return items, nil
}

func (r *InventoryRepository) IncomingQuantity(ctx context.Context, partID string, untilDate string) (int, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := db.Model(&model.MaterialOrder{}).
		Select("COALESCE(SUM(quantity_ordered), 0)").
		Where("part_id = ?", strings.TrimSpace(partID)).
		Where("status NOT IN ?", inventory.ClosedOrderStatuses).
		Where("expected_delivery_date <= ?", untilDate).
		Scan(&total).Error; err != nil {
		return 0, errs.Wrap(err, "sum incoming material orders")
	}
	return int(total), nil
}

func (r *InventoryRepository) PendingInbound(ctx context.Context, partID string) (int, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := db.Model(&model.MaterialOrder{}).
		Select("COALESCE(SUM(quantity_ordered), 0)").
		Where("part_id = ?", strings.TrimSpace(partID)).
		Where("status NOT IN ?", inventory.ClosedOrderStatuses).
		Scan(&total).Error; err != nil {
		return 0, errs.Wrap(err, "sum pending material orders")
	}
	return int(total), nil
}

func (r *InventoryRepository) OpenSalesQuantity(ctx context.Context, ref inventory.ModelRef) (int, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := db.Model(&model.SalesOrder{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("series = ? AND variant = ?", ref.Series, ref.Variant).
		Where("status NOT IN ?", inventory.ClosedOrderStatuses).
		Scan(&total).Error; err != nil {
		return 0, errs.Wrap(err, "sum open sales orders")
	}
	return int(total), nil
}

type lowStockScan struct {
	model.StockLevel
	SupplierName *string
	LeadTimeDays *int
}

// LowStock returns parts under threshold with the fastest supplier, lowest stock first.
func (r *InventoryRepository) LowStock(ctx context.Context, threshold int) ([]ports.LowStockRow, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []lowStockScan
	if err := db.Table("stock_levels AS sl").
		Select(`sl.part_id, sl.part_name, sl.location, sl.quantity_available, sl.status, sl.quality_hold_reason,
			st.supplier_name AS supplier_name, st.lead_time_days AS lead_time_days`).
		Joins(`LEFT JOIN supplier_terms AS st ON st.part_id = sl.part_id
			AND st.supplier_id = (SELECT s2.supplier_id FROM supplier_terms AS s2
				WHERE s2.part_id = sl.part_id ORDER BY s2.lead_time_days ASC, s2.supplier_id ASC LIMIT 1)`).
		Where("sl.quantity_available < ?", threshold).
		Order("sl.quantity_available asc").
		Order("sl.part_id asc").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query low stock")
	}

	items := make([]ports.LowStockRow, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.LowStockRow{
			Stock:        mapStockLevel(row.StockLevel),
			SupplierName: row.SupplierName,
			LeadTimeDays: row.LeadTimeDays,
		})
	}
	return items, nil
}

func mapBOMLines(rows []model.BOMLine) []inventory.BOMLine {
	items := make([]inventory.BOMLine, 0, len(rows))
	for _, row := range rows {
		items = append(items, inventory.BOMLine{
			Model:          row.Model,
			PartID:         row.PartID,
			PartName:       row.PartName,
			QuantityNeeded: row.QuantityNeeded,
		})
	}
	return items
}

func mapStockLevel(row model.StockLevel) inventory.StockLevel {
	return inventory.StockLevel{
		PartID:            row.PartID,
		PartName:          row.PartName,
		Location:          row.Location,
		QuantityAvailable: row.QuantityAvailable,
		Status:            row.Status,
		QualityHoldReason: row.QualityHoldReason,
	}
}
