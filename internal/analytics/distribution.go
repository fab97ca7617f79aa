package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// ShiftHours maps a shift type to the hours worked in one journey.
type ShiftHours struct {
	FullTime float64
	PartTime float64
	Default  float64
}

// DefaultShiftHours is the standard shift table.
var DefaultShiftHours = ShiftHours{FullTime: 9, PartTime: 6, Default: 8}

// For returns the hours of a journey worked under shift.
func (h ShiftHours) For(shift ShiftType) float64 {
	switch shift {
	case ShiftFullTime:
		return h.FullTime
	case ShiftPartTime:
		return h.PartTime
	default:
		return h.Default
	}
}

// CohortSummary describes the per-hour sales distribution of one shift type.
type CohortSummary struct {
	Count  int             `json:"n_muestras"`
	Mean   float64         `json:"promedio_hora"`
	Min    float64         `json:"min"`
	Q1     float64         `json:"q1"`
	Median float64         `json:"mediana"`
	Q3     float64         `json:"q3"`
	Max    float64         `json:"max"`
	Total  decimal.Decimal `json:"venta_total_absoluta"`
	Raw    []float64       `json:"raw_data"`
}

// Distribution groups the full-time and part-time cohorts.
type Distribution struct {
	FullTime     CohortSummary `json:"full"`
	PartTime     CohortSummary `json:"part"`
	Unclassified int           `json:"sin_clasificar"`
}

// Summarize converts assignment-day totals into sales per hour and summarises
// each shift cohort. Days of other shifts are counted as unclassified.
func Summarize(days []AssignmentDay, hours ShiftHours) Distribution {
	var full, part []float64
	fullTotal, partTotal := decimal.Zero, decimal.Zero
	unclassified := 0
	for _, day := range days {
		h := hours.For(day.Shift)
		if h <= 0 {
			unclassified++
			continue
		}
		perHour := day.Amount.InexactFloat64() / h
		switch day.Shift {
		case ShiftFullTime:
			full = append(full, perHour)
			fullTotal = fullTotal.Add(day.Amount)
		case ShiftPartTime:
			part = append(part, perHour)
			partTotal = partTotal.Add(day.Amount)
		default:
			unclassified++
		}
	}
	return Distribution{
		FullTime:     summarizeCohort(full, fullTotal),
		PartTime:     summarizeCohort(part, partTotal),
		Unclassified: unclassified,
	}
}

func summarizeCohort(sample []float64, total decimal.Decimal) CohortSummary {
	out := CohortSummary{Total: total, Raw: make([]float64, 0, len(sample))}
	out.Raw = append(out.Raw, sample...)
	if len(sample) == 0 {
		return out
	}
	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	out.Count = len(sorted)
	out.Mean = sum / float64(len(sorted))
	out.Min = sorted[0]
	out.Q1 = Percentile(sorted, 0.25)
	out.Median = Percentile(sorted, 0.5)
	out.Q3 = Percentile(sorted, 0.75)
	out.Max = sorted[len(sorted)-1]
	return out
}

// Percentile returns the continuous, linearly interpolated percentile p of an
// ascending sample. An empty sample yields 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
