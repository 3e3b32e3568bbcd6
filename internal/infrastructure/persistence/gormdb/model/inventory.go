package model

import "github.com/shopspring/decimal"

// BOMLine is one (model, part) row of a bill of materials.
type BOMLine struct {
	Model          string `gorm:"column:model;type:text;primaryKey"`
	PartID         string `gorm:"column:part_id;type:text;primaryKey;index:idx_bom_lines_part"`
	PartName       string `gorm:"column:part_name;type:text;not null"`
	QuantityNeeded int    `gorm:"column:quantity_needed;not null;check:chk_bom_lines_qty,quantity_needed > 0"`
}

func (BOMLine) TableName() string {
	return "bom_lines"
}

type StockLevel struct {
	PartID            string  `gorm:"column:part_id;type:text;primaryKey"`
	PartName          string  `gorm:"column:part_name;type:text;not null"`
	Location          string  `gorm:"column:location;type:text;not null"`
	QuantityAvailable int     `gorm:"column:quantity_available;not null;default:0;check:chk_stock_levels_qty,quantity_available >= 0"`
	Status            string  `gorm:"column:status;type:text;not null"`
	QualityHoldReason *string `gorm:"column:quality_hold_reason;type:text"`
}

func (StockLevel) TableName() string {
	return "stock_levels"
}

type MaterialOrder struct {
	OrderID              string  `gorm:"column:order_id;type:text;primaryKey"`
	PartID               string  `gorm:"column:part_id;type:text;not null;index:idx_material_orders_part_date,priority:1"`
	QuantityOrdered      int     `gorm:"column:quantity_ordered;not null"`
	OrderDate            string  `gorm:"column:order_date;type:text;not null"`
	ExpectedDeliveryDate string  `gorm:"column:expected_delivery_date;type:text;not null;index:idx_material_orders_part_date,priority:2"`
	SupplierID           string  `gorm:"column:supplier_id;type:text;not null"`
	Status               string  `gorm:"column:status;type:text;not null"`
	ActualDeliveredAt    *string `gorm:"column:actual_delivered_at;type:text"`
}

func (MaterialOrder) TableName() string {
	return "material_orders"
}

type SalesOrder struct {
	SalesOrderID  string `gorm:"column:sales_order_id;type:text;primaryKey"`
	Series        string `gorm:"column:series;type:text;not null;index:idx_sales_orders_model,priority:1"`
	Variant       string `gorm:"column:variant;type:text;not null;index:idx_sales_orders_model,priority:2"`
	Quantity      int    `gorm:"column:quantity;not null"`
	Status        string `gorm:"column:status;type:text;not null"`
	RequestedDate string `gorm:"column:requested_date;type:text;not null"`
}

func (SalesOrder) TableName() string {
	return "sales_orders"
}

type SupplierTerm struct {
	SupplierID        string              `gorm:"column:supplier_id;type:text;primaryKey"`
	PartID            string              `gorm:"column:part_id;type:text;primaryKey;index:idx_supplier_terms_part"`
	SupplierName      string              `gorm:"column:supplier_name;type:text;not null"`
	LeadTimeDays      int                 `gorm:"column:lead_time_days;not null"`
	PricePerUnit      decimal.NullDecimal `gorm:"column:price_per_unit;type:numeric"`
	MinOrderQty       *int                `gorm:"column:min_order_qty"`
	ReliabilityRating *float64            `gorm:"column:reliability_rating"`
}

func (SupplierTerm) TableName() string {
	return "supplier_terms"
}
