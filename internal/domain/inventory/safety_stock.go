package inventory

import (
	"math"

	"github.com/shopspring/decimal"

	"supplyguard/internal/errs"
)

var (
	// ServiceLevelZ covers roughly the 95th percentile, one-sided.
	ServiceLevelZ = decimal.RequireFromString("1.65")
	// DemandVariation is the coefficient of variation applied to daily demand.
	DemandVariation = decimal.RequireFromString("0.2")
	// LeadTimeSigmaDays is the fixed lead-time standard deviation.
	LeadTimeSigmaDays = decimal.NewFromInt(2)
)

// SafetyStock returns Z * sqrt(L*sd^2 + d^2*sl^2) rounded to two decimals.
func SafetyStock(leadTimeDays, dailyDemand float64) (decimal.Decimal, error) {
	if math.IsNaN(leadTimeDays) || math.IsInf(leadTimeDays, 0) || leadTimeDays < 0 {
		return decimal.Zero, errs.Invalid("lead time %v must be a non-negative number", leadTimeDays)
	}
	if math.IsNaN(dailyDemand) || math.IsInf(dailyDemand, 0) || dailyDemand < 0 {
		return decimal.Zero, errs.Invalid("daily demand %v must be a non-negative number", dailyDemand)
	}

	lead := decimal.NewFromFloat(leadTimeDays)
	demand := decimal.NewFromFloat(dailyDemand)
	sigmaDemand := demand.Mul(DemandVariation)

	variance := lead.Mul(sigmaDemand.Mul(sigmaDemand)).
		Add(demand.Mul(demand).Mul(LeadTimeSigmaDays.Mul(LeadTimeSigmaDays)))

	root := decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
	return ServiceLevelZ.Mul(root).Round(2), nil
}
