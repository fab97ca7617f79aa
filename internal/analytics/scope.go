package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ScopeMode selects how journeys and objectives are restricted.
type ScopeMode string

const (
	// ScopeActivePeriod reads the Active period of every zone.
	ScopeActivePeriod ScopeMode = "active_period"
	// ScopeDateRange reads journeys between two inclusive dates.
	ScopeDateRange ScopeMode = "date_range"
	// ScopePeriod reads a single period.
	ScopePeriod ScopeMode = "period"
)

// ScopeQuery carries the raw, optional filter inputs of a report request.
type ScopeQuery struct {
	Start    *time.Time
	End      *time.Time
	ZoneID   *uuid.UUID
	PeriodID *uuid.UUID
}

// Scope is a resolved report filter. Every query of a report renders its
// predicate from the same Scope value.
type Scope struct {
	Mode     ScopeMode
	Start    time.Time
	End      time.Time
	PeriodID uuid.UUID
	ZoneID   *uuid.UUID
	Today    time.Time
	Statuses []SaleStatus
}

// ResolveScope turns the optional inputs into a Scope. A target period wins
// over dates; a single date without its pair is rejected.
func ResolveScope(q ScopeQuery, today time.Time, statuses []SaleStatus) (Scope, error) {
	scope := Scope{ZoneID: q.ZoneID, Today: dateOnly(today), Statuses: statuses}
	switch {
	case q.PeriodID != nil:
		if *q.PeriodID == uuid.Nil {
			return Scope{}, fmt.Errorf("%w: empty period id", ErrInvalidScope)
		}
		scope.Mode = ScopePeriod
		scope.PeriodID = *q.PeriodID
	case q.Start != nil && q.End != nil:
		start, end := dateOnly(*q.Start), dateOnly(*q.End)
		if end.Before(start) {
			return Scope{}, fmt.Errorf("%w: end date before start date", ErrInvalidScope)
		}
		scope.Mode = ScopeDateRange
		scope.Start = start
		scope.End = end
	case q.Start != nil || q.End != nil:
		return Scope{}, fmt.Errorf("%w: start and end dates must be given together", ErrInvalidScope)
	default:
		scope.Mode = ScopeActivePeriod
	}
	return scope, nil
}

// PeriodScope builds a period scope directly from a loaded period.
func PeriodScope(period Period, today time.Time, statuses []SaleStatus) Scope {
	zone := period.ZoneID
	return Scope{
		Mode:     ScopePeriod,
		PeriodID: period.ID,
		ZoneID:   &zone,
		Today:    dateOnly(today),
		Statuses: statuses,
	}
}

// DateRangeScope builds a date-range scope for the inclusive window [start, end].
func DateRangeScope(start, end time.Time, zoneID *uuid.UUID, today time.Time, statuses []SaleStatus) Scope {
	return Scope{
		Mode:     ScopeDateRange,
		Start:    dateOnly(start),
		End:      dateOnly(end),
		ZoneID:   zoneID,
		Today:    dateOnly(today),
		Statuses: statuses,
	}
}

// JourneyPredicate restricts journeys (alias j) joined with their period (alias p).
func (s Scope) JourneyPredicate() Predicate {
	var pred Predicate
	switch s.Mode {
	case ScopeDateRange:
		pred = pred.And("j.date BETWEEN @start_date AND @end_date", pgx.NamedArgs{
			"start_date": pgDate(s.Start),
			"end_date":   pgDate(s.End),
		})
	case ScopePeriod:
		pred = pred.And("j.period_id = @period_id", pgx.NamedArgs{"period_id": s.PeriodID})
	default:
		pred = pred.And("p.status = @period_status", pgx.NamedArgs{"period_status": string(PeriodActive)})
	}
	if s.ZoneID != nil {
		pred = pred.And("j.zone_id = @zone_id", pgx.NamedArgs{"zone_id": *s.ZoneID})
	}
	return pred
}

// SalePredicate extends JourneyPredicate with the counted sale statuses (alias v).
func (s Scope) SalePredicate() Predicate {
	return s.JourneyPredicate().Merge(s.StatusPredicate())
}

// StatusPredicate restricts sales (alias v) to the counted statuses. It is
// empty when every status counts.
func (s Scope) StatusPredicate() Predicate {
	if len(s.Statuses) == 0 {
		return Predicate{}
	}
	statuses := make([]string, 0, len(s.Statuses))
	for _, st := range s.Statuses {
		statuses = append(statuses, string(st))
	}
	return Predicate{}.And("v.status = ANY(@sale_statuses)", pgx.NamedArgs{"sale_statuses": statuses})
}

// ObjectivePredicate restricts the periods (alias p) whose assignments
// contribute objectives.
func (s Scope) ObjectivePredicate() Predicate {
	var pred Predicate
	switch s.Mode {
	case ScopeDateRange:
		pred = pred.And("p.start_date <= @end_date AND p.end_date >= @start_date", pgx.NamedArgs{
			"start_date": pgDate(s.Start),
			"end_date":   pgDate(s.End),
		})
	case ScopePeriod:
		pred = pred.And("p.id = @period_id", pgx.NamedArgs{"period_id": s.PeriodID})
	default:
		pred = pred.And("p.status = @period_status AND @today BETWEEN p.start_date AND p.end_date", pgx.NamedArgs{
			"period_status": string(PeriodActive),
			"today":         pgDate(s.Today),
		})
	}
	if s.ZoneID != nil {
		pred = pred.And("p.zone_id = @zone_id", pgx.NamedArgs{"zone_id": *s.ZoneID})
	}
	return pred
}

// CacheKey returns a stable textual identity of the scope.
func (s Scope) CacheKey() string {
	parts := []string{string(s.Mode)}
	switch s.Mode {
	case ScopeDateRange:
		parts = append(parts, s.Start.Format(time.DateOnly), s.End.Format(time.DateOnly))
	case ScopePeriod:
		parts = append(parts, s.PeriodID.String())
	default:
		parts = append(parts, s.Today.Format(time.DateOnly))
	}
	parts = append(parts, zoneToken(s.ZoneID))
	if len(s.Statuses) > 0 {
		statuses := make([]string, 0, len(s.Statuses))
		for _, st := range s.Statuses {
			statuses = append(statuses, string(st))
		}
		parts = append(parts, strings.Join(statuses, ","))
	}
	return strings.Join(parts, ":")
}

// Predicate is a conjunction of constant SQL fragments with named arguments.
// Values never enter the SQL text.
type Predicate struct {
	clauses []string
	args    pgx.NamedArgs
}

// And returns a copy of p with the clause appended.
func (p Predicate) And(clause string, args pgx.NamedArgs) Predicate {
	out := Predicate{
		clauses: append(append([]string(nil), p.clauses...), clause),
		args:    make(pgx.NamedArgs, len(p.args)+len(args)),
	}
	for k, v := range p.args {
		out.args[k] = v
	}
	for k, v := range args {
		out.args[k] = v
	}
	return out
}

// Merge conjoins two predicates.
func (p Predicate) Merge(other Predicate) Predicate {
	out := p
	for i, clause := range other.clauses {
		if i == 0 {
			out = out.And(clause, other.args)
			continue
		}
		out = out.And(clause, nil)
	}
	return out
}

// SQL renders the conjunction; an empty predicate renders as TRUE.
func (p Predicate) SQL() string {
	if len(p.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(p.clauses, " AND ")
}

// Args returns the named arguments, merged with extra.
func (p Predicate) Args(extra pgx.NamedArgs) pgx.NamedArgs {
	out := make(pgx.NamedArgs, len(p.args)+len(extra))
	for k, v := range p.args {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func pgDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func zoneToken(zoneID *uuid.UUID) string {
	if zoneID == nil {
		return "-"
	}
	return zoneID.String()
}
