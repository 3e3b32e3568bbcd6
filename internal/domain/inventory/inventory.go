package inventory

import (
	"strings"

	"supplyguard/internal/errs"
)

// Material order and sales order statuses as stored by the inventory system.
const (
	OrderStatusOrdered   = "ordered"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
	OrderStatusPartial   = "partial"
)

// ClosedOrderStatuses never contribute inbound supply or open demand.
var ClosedOrderStatuses = []string{OrderStatusDelivered, OrderStatusCancelled}

const (
	DefaultLowStockThreshold = 50
	CriticalStockThreshold   = 25
)

type BOMLine struct {
	Model          string `json:"model"`
	PartID         string `json:"part_id"`
	PartName       string `json:"part_name"`
	QuantityNeeded int    `json:"quantity_needed"`
}

type StockLevel struct {
	PartID            string  `json:"part_id"`
	PartName          string  `json:"part_name"`
	Location          string  `json:"location"`
	QuantityAvailable int     `json:"quantity_available"`
	Status            string  `json:"status"`
	QualityHoldReason *string `json:"quality_hold_reason,omitempty"`
}

// ModelRef is a product model identifier such as S1_V1 split into series and variant.
type ModelRef struct {
	Series  string
	Variant string
}

func (m ModelRef) String() string {
	return m.Series + "_" + m.Variant
}

// ParseModel splits at the last underscore. Sales orders are keyed by series and variant.
func ParseModel(raw string) (ModelRef, error) {
	model := strings.TrimSpace(raw)
	idx := strings.LastIndex(model, "_")
	if idx <= 0 || idx == len(model)-1 {
		return ModelRef{}, errs.Invalid("model %q must look like SERIES_VARIANT", raw)
	}
	return ModelRef{Series: model[:idx], Variant: model[idx+1:]}, nil
}

// Urgency classifies a stock quantity against the low-stock thresholds.
func Urgency(quantity int) string {
	switch {
	case quantity < CriticalStockThreshold:
		return "CRITICAL"
	case quantity < DefaultLowStockThreshold:
		return "WARNING"
	default:
		return "OK"
	}
}
