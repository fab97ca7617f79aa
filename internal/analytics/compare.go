package analytics

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodComparison compares the sales of a period with its predecessor.
type PeriodComparison struct {
	Exists        bool             `json:"existe"`
	PeriodID      *uuid.UUID       `json:"periodo_id,omitempty"`
	PeriodName    string           `json:"nombre,omitempty"`
	Current       decimal.Decimal  `json:"actual"`
	Previous      *decimal.Decimal `json:"anterior,omitempty"`
	DifferencePct *float64         `json:"diferencia_pct,omitempty"`
}

// ComparePeriods builds the comparison. A nil previous period yields
// Exists=false with no difference; a previous total of zero yields 100%.
func ComparePeriods(current decimal.Decimal, previous *Period, previousTotal decimal.Decimal) PeriodComparison {
	out := PeriodComparison{Current: current}
	if previous == nil {
		return out
	}
	id := previous.ID
	prev := previousTotal
	out.Exists = true
	out.PeriodID = &id
	out.PeriodName = previous.Name
	out.Previous = &prev

	diff := 100.0
	if previousTotal.Sign() > 0 {
		diff = current.Sub(previousTotal).Mul(decimal.NewFromInt(100)).DivRound(previousTotal, 2).InexactFloat64()
	}
	out.DifferencePct = &diff
	return out
}
