package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestAggregateKPIsBreakdownsSumToTotals(t *testing.T) {
	buckets := []SalesBucket{
		{Category: PaymentCash, Shift: ShiftFullTime, Amount: d(1000), Count: 2},
		{Category: PaymentDebit, Shift: ShiftFullTime, Amount: d(500), Count: 1},
		{Category: PaymentCredit, Shift: ShiftPartTime, Amount: d(1500), Count: 3},
		{Category: PaymentCash, Shift: "", Amount: d(300), Count: 1},
	}
	objectives := []NormalizedObjective{{Real: d(4000)}, {Real: d(2000)}}
	kpis := AggregateKPIs(buckets, objectives, 4)

	assert.True(t, d(3300).Equal(kpis.TotalSales))
	assert.Equal(t, int64(7), kpis.TotalCount)
	assert.Equal(t, "471.43", kpis.AverageTicket.StringFixed(2))
	assert.Equal(t, 4, kpis.ActiveToday)
	assert.True(t, d(6000).Equal(kpis.GlobalObjective))
	assert.InDelta(t, 55, kpis.GlobalProgress, 1e-9)

	paySum, payCount := decimal.Zero, int64(0)
	for _, b := range kpis.ByPayment {
		paySum = paySum.Add(b.Amount)
		payCount += b.Count
	}
	shiftSum, shiftCount := decimal.Zero, int64(0)
	for _, b := range kpis.ByShift {
		shiftSum = shiftSum.Add(b.Amount)
		shiftCount += b.Count
	}
	assert.True(t, kpis.TotalSales.Equal(paySum))
	assert.True(t, kpis.TotalSales.Equal(shiftSum))
	assert.Equal(t, kpis.TotalCount, payCount)
	assert.Equal(t, kpis.TotalCount, shiftCount)
	assert.True(t, d(300).Equal(kpis.ByShift[ShiftUnassigned].Amount))
}

func TestAggregateKPIsEmpty(t *testing.T) {
	kpis := AggregateKPIs(nil, nil, 0)
	assert.True(t, kpis.TotalSales.IsZero())
	assert.True(t, kpis.AverageTicket.IsZero())
	assert.Zero(t, kpis.GlobalProgress)
	assert.Contains(t, kpis.ByPayment, PaymentCredit)
	assert.Contains(t, kpis.ByShift, ShiftPartTime)
}
