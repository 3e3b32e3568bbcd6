package planning

import (
	"github.com/shopspring/decimal"

	"supplyguard/internal/domain/inventory"
)

type SafetyStockResult struct {
	LeadTimeDays float64         `json:"lead_time_days"`
	DailyDemand  float64         `json:"daily_demand"`
	Quantity     decimal.Decimal `json:"safety_stock"`
}

func (s *Service) SafetyStock(leadTimeDays, dailyDemand float64) (SafetyStockResult, error) {
	quantity, err := inventory.SafetyStock(leadTimeDays, dailyDemand)
	if err != nil {
		return SafetyStockResult{}, err
	}
	return SafetyStockResult{
		LeadTimeDays: leadTimeDays,
		DailyDemand:  dailyDemand,
		Quantity:     quantity,
	}, nil
}
