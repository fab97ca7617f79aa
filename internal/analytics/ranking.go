package analytics

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RankingEntry is one promoter row of the ranking.
type RankingEntry struct {
	PromoterID   uuid.UUID       `json:"promotor_id"`
	PromoterName string          `json:"nombre_completo"`
	Shift        ShiftType       `json:"tipo_jornada"`
	Sales        decimal.Decimal `json:"venta_real"`
	Count        int64           `json:"cantidad_fichas"`
	Objective    decimal.Decimal `json:"objetivo"`
	Delta        decimal.Decimal `json:"delta"`
	Progress     float64         `json:"avance_porcentaje"`
}

// Rank joins promoter sales with their objectives. In date-range scopes the
// objective is the largest nominal assignment objective, since a range may
// span several periods; otherwise it is the sum of real objectives.
// Promoters with an assignment but no sales are listed with zero sales.
func Rank(mode ScopeMode, sales []PromoterSales, objectives []NormalizedObjective) []RankingEntry {
	entries := make(map[uuid.UUID]*RankingEntry, len(sales)+len(objectives))
	order := make([]uuid.UUID, 0, len(sales)+len(objectives))
	get := func(id uuid.UUID, name string) *RankingEntry {
		if e, ok := entries[id]; ok {
			if e.PromoterName == "" {
				e.PromoterName = name
			}
			return e
		}
		e := &RankingEntry{PromoterID: id, PromoterName: name, Sales: decimal.Zero, Objective: decimal.Zero}
		entries[id] = e
		order = append(order, id)
		return e
	}

	for _, s := range sales {
		e := get(s.PromoterID, s.PromoterName)
		e.Sales = e.Sales.Add(s.Amount)
		e.Count += s.Count
	}

	nominal := make(map[uuid.UUID]decimal.Decimal, len(objectives))
	for _, o := range objectives {
		e := get(o.PromoterID, o.PromoterName)
		if mode == ScopeDateRange {
			if prev, ok := nominal[o.PromoterID]; !ok || o.Nominal.GreaterThan(prev) {
				nominal[o.PromoterID] = o.Nominal
				e.Objective = o.Nominal
				e.Shift = o.Shift
			}
			continue
		}
		e.Objective = e.Objective.Add(o.Real)
		if e.Shift == "" {
			e.Shift = o.Shift
		}
	}

	out := make([]RankingEntry, 0, len(order))
	for _, id := range order {
		e := entries[id]
		e.Delta = e.Sales.Sub(e.Objective)
		e.Progress = percentOf(e.Sales, e.Objective)
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Sales.Cmp(out[j].Sales); c != 0 {
			return c > 0
		}
		return bytes.Compare(out[i].PromoterID[:], out[j].PromoterID[:]) < 0
	})
	return out
}

// TopN truncates a ranking to its first n entries; n <= 0 keeps all.
func TopN(entries []RankingEntry, n int) []RankingEntry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[:n]
}
