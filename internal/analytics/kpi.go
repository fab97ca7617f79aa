package analytics

import (
	"github.com/shopspring/decimal"
)

// Breakdown is an amount and sale count pair.
type Breakdown struct {
	Amount decimal.Decimal `json:"monto"`
	Count  int64           `json:"fichas"`
}

// KPISummary holds the headline indicators of a report scope.
type KPISummary struct {
	TotalSales      decimal.Decimal               `json:"total_ventas"`
	TotalCount      int64                         `json:"total_fichas"`
	AverageTicket   decimal.Decimal               `json:"ticket_promedio"`
	ByPayment       map[PaymentCategory]Breakdown `json:"desglose_pago"`
	ByShift         map[ShiftType]Breakdown       `json:"desglose_turno"`
	ActiveToday     int                           `json:"activos_hoy"`
	GlobalObjective decimal.Decimal               `json:"objetivo_global"`
	GlobalProgress  float64                       `json:"avance_global"`
}

// AggregateKPIs folds the payment x shift grid into totals and both
// breakdowns. Because every figure comes from the same buckets, the
// breakdowns always sum to the totals.
func AggregateKPIs(buckets []SalesBucket, objectives []NormalizedObjective, activeToday int) KPISummary {
	summary := KPISummary{
		TotalSales:    decimal.Zero,
		AverageTicket: decimal.Zero,
		ByPayment: map[PaymentCategory]Breakdown{
			PaymentCash:   {Amount: decimal.Zero},
			PaymentDebit:  {Amount: decimal.Zero},
			PaymentCredit: {Amount: decimal.Zero},
		},
		ByShift: map[ShiftType]Breakdown{
			ShiftFullTime: {Amount: decimal.Zero},
			ShiftPartTime: {Amount: decimal.Zero},
		},
		ActiveToday:     activeToday,
		GlobalObjective: sumReal(objectives),
	}
	for _, b := range buckets {
		summary.TotalSales = summary.TotalSales.Add(b.Amount)
		summary.TotalCount += b.Count

		pay := summary.ByPayment[b.Category]
		pay.Amount = pay.Amount.Add(b.Amount)
		pay.Count += b.Count
		summary.ByPayment[b.Category] = pay

		shift := b.Shift
		if shift == "" {
			shift = ShiftUnassigned
		}
		sh := summary.ByShift[shift]
		sh.Amount = sh.Amount.Add(b.Amount)
		sh.Count += b.Count
		summary.ByShift[shift] = sh
	}
	summary.AverageTicket = safeDiv(summary.TotalSales, decimal.NewFromInt(summary.TotalCount))
	summary.GlobalProgress = percentOf(summary.TotalSales, summary.GlobalObjective)
	return summary
}

// safeDiv divides rounding to cents and returns zero for a zero denominator.
func safeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(den, 2)
}

// percentOf returns num/den*100 rounded to two decimals, or 0 without a base.
func percentOf(num, den decimal.Decimal) float64 {
	if den.Sign() <= 0 {
		return 0
	}
	return num.Mul(decimal.NewFromInt(100)).DivRound(den, 2).InexactFloat64()
}
