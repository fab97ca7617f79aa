package analytics

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NormalizedObjective is an assignment objective pro-rated by attendance.
type NormalizedObjective struct {
	PromoterID   uuid.UUID
	PromoterName string
	PeriodID     uuid.UUID
	Shift        ShiftType
	Nominal      decimal.Decimal
	Real         decimal.Decimal
}

// ObjectiveAnomaly records an assignment whose non-operative days exceed the
// operative days of its period.
type ObjectiveAnomaly struct {
	PromoterID       uuid.UUID `json:"promotor_id"`
	PeriodID         uuid.UUID `json:"periodo_id"`
	OperativeDays    int       `json:"dias_operativos"`
	NonOperativeDays int       `json:"dias_no_operativos"`
}

// RealObjective pro-rates objective over the days the promoter was available:
// objective / operativeDays * (operativeDays - nonOperative). Without
// operative days the nominal objective is returned. The second result reports
// whether the available days had to be clamped at zero.
func RealObjective(objective decimal.Decimal, operativeDays, nonOperative int) (decimal.Decimal, bool) {
	if operativeDays <= 0 {
		return objective, false
	}
	available := operativeDays - nonOperative
	clamped := false
	if available < 0 {
		available = 0
		clamped = true
	}
	if available >= operativeDays {
		return objective, clamped
	}
	prorated := objective.Mul(decimal.NewFromInt(int64(available))).Div(decimal.NewFromInt(int64(operativeDays)))
	return prorated, clamped
}

// NormalizeObjectives applies RealObjective to every assignment.
func NormalizeObjectives(rows []AssignmentObjective) ([]NormalizedObjective, []ObjectiveAnomaly) {
	out := make([]NormalizedObjective, 0, len(rows))
	var anomalies []ObjectiveAnomaly
	for _, row := range rows {
		prorated, clamped := RealObjective(row.Objective, row.OperativeDays, row.NonOperativeDays)
		if clamped {
			anomalies = append(anomalies, ObjectiveAnomaly{
				PromoterID:       row.PromoterID,
				PeriodID:         row.PeriodID,
				OperativeDays:    row.OperativeDays,
				NonOperativeDays: row.NonOperativeDays,
			})
		}
		out = append(out, NormalizedObjective{
			PromoterID:   row.PromoterID,
			PromoterName: row.PromoterName,
			PeriodID:     row.PeriodID,
			Shift:        row.Shift,
			Nominal:      row.Objective,
			Real:         prorated,
		})
	}
	return out, anomalies
}

func sumReal(objectives []NormalizedObjective) decimal.Decimal {
	total := decimal.Zero
	for _, o := range objectives {
		total = total.Add(o.Real)
	}
	return total
}
