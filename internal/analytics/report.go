package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScopeInfo echoes the resolved scope in report payloads.
type ScopeInfo struct {
	Mode     ScopeMode  `json:"modo"`
	Start    string     `json:"fecha_inicio,omitempty"`
	End      string     `json:"fecha_fin,omitempty"`
	PeriodID *uuid.UUID `json:"periodo_id,omitempty"`
	ZoneID   *uuid.UUID `json:"zona_id,omitempty"`
	Today    string     `json:"hoy"`
}

func newScopeInfo(s Scope) ScopeInfo {
	info := ScopeInfo{Mode: s.Mode, ZoneID: s.ZoneID, Today: s.Today.Format(time.DateOnly)}
	switch s.Mode {
	case ScopeDateRange:
		info.Start = s.Start.Format(time.DateOnly)
		info.End = s.End.Format(time.DateOnly)
	case ScopePeriod:
		id := s.PeriodID
		info.PeriodID = &id
	}
	return info
}

// Dashboard is the global report for an active-period or date-range scope.
type Dashboard struct {
	Scope        ScopeInfo          `json:"alcance"`
	KPIs         KPISummary         `json:"kpis"`
	Distribution Distribution       `json:"distribucion"`
	MannWhitney  MannWhitneyResult  `json:"mann_whitney"`
	Ranking      []RankingEntry     `json:"ranking"`
	Anomalies    []ObjectiveAnomaly `json:"anomalias"`
}

// PeriodKPIs extends KPISummary with per-period workload indicators.
type PeriodKPIs struct {
	KPISummary
	ManDays                 int             `json:"dias_hombre_trabajados"`
	DailyAveragePerPromoter decimal.Decimal `json:"venta_promedio_diaria_promotor"`
	LoadedDays              int             `json:"dias_cargados"`
	OperativeDays           int             `json:"dias_operativos"`
}

// ShiftSegment summarises one shift type within a period.
type ShiftSegment struct {
	Shift     ShiftType       `json:"tipo_jornada"`
	Sales     decimal.Decimal `json:"venta_total"`
	Promoters int             `json:"promotores_asignados"`
	Count     int64           `json:"fichas"`
}

// WeekdayPoint aggregates sales of one day of the week.
type WeekdayPoint struct {
	ISODay  int             `json:"dia_num"`
	Weekday string          `json:"dia"`
	Amount  decimal.Decimal `json:"total"`
	Count   int64           `json:"fichas"`
}

// PeriodDashboard is the detailed report of a single period.
type PeriodDashboard struct {
	Period            Period             `json:"periodo"`
	KPIs              PeriodKPIs         `json:"kpis"`
	Distribution      Distribution       `json:"distribucion"`
	MannWhitney       MannWhitneyResult  `json:"mann_whitney"`
	Segmentation      []ShiftSegment     `json:"segmentacion"`
	TopPlans          []LabelCount       `json:"top_planes"`
	TopPaymentMethods []LabelCount       `json:"top_medios_pago"`
	Weekdays          []WeekdayPoint     `json:"ventas_dia_semana"`
	Daily             []DailyPoint       `json:"ventas_diarias"`
	Ranking           []RankingEntry     `json:"ranking"`
	Journeys          []JourneySummary   `json:"historial_jornadas"`
	Comparison        PeriodComparison   `json:"comparacion"`
	Anomalies         []ObjectiveAnomaly `json:"anomalias"`
}

func segmentByShift(kpis KPISummary, objectives []NormalizedObjective) []ShiftSegment {
	promoters := map[ShiftType]map[uuid.UUID]struct{}{}
	for _, o := range objectives {
		if promoters[o.Shift] == nil {
			promoters[o.Shift] = map[uuid.UUID]struct{}{}
		}
		promoters[o.Shift][o.PromoterID] = struct{}{}
	}
	shifts := []ShiftType{ShiftFullTime, ShiftPartTime}
	if b, ok := kpis.ByShift[ShiftUnassigned]; ok && b.Count > 0 {
		shifts = append(shifts, ShiftUnassigned)
	}
	out := make([]ShiftSegment, 0, len(shifts))
	for _, shift := range shifts {
		b := kpis.ByShift[shift]
		out = append(out, ShiftSegment{
			Shift:     shift,
			Sales:     b.Amount,
			Promoters: len(promoters[shift]),
			Count:     b.Count,
		})
	}
	return out
}

func weekdaySeries(daily []DailyPoint) []WeekdayPoint {
	byDay := map[int]*WeekdayPoint{}
	for _, d := range daily {
		iso := int(d.Date.Weekday())
		if iso == 0 {
			iso = 7
		}
		p, ok := byDay[iso]
		if !ok {
			p = &WeekdayPoint{ISODay: iso, Weekday: d.Date.Weekday().String(), Amount: decimal.Zero}
			byDay[iso] = p
		}
		p.Amount = p.Amount.Add(d.Amount)
		p.Count += d.Count
	}
	out := make([]WeekdayPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ISODay < out[j].ISODay })
	return out
}

// fillDays returns one point per day in [start, end], zero-filling missing days.
func fillDays(points []DailyPoint, start, end time.Time) []DailyPoint {
	byDate := make(map[string]DailyPoint, len(points))
	for _, p := range points {
		byDate[p.Date.Format(time.DateOnly)] = p
	}
	var out []DailyPoint
	for d := dateOnly(start); !d.After(dateOnly(end)); d = d.AddDate(0, 0, 1) {
		if p, ok := byDate[d.Format(time.DateOnly)]; ok {
			p.Date = d
			out = append(out, p)
			continue
		}
		out = append(out, DailyPoint{Date: d, Amount: decimal.Zero})
	}
	return out
}
