package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/fieldsales/internal/platform/db"
)

// Repository reads the relational fact store with pgx.
type Repository struct {
	db db.Beginner
}

// NewRepository constructs a Repository; pass a *pgxpool.Pool.
func NewRepository(pool db.Beginner) *Repository {
	return &Repository{db: pool}
}

// ReadSnapshot runs fn against a read-only RepeatableRead transaction.
func (r *Repository) ReadSnapshot(ctx context.Context, fn func(ctx context.Context, q FactReader) error) error {
	return db.WithSnapshot(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &snapshotReader{q: tx})
	})
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type snapshotReader struct {
	q querier
}

// salesFrom joins every sale to its journey, period, payment method and the
// promoter's assignment in that period.
const salesFrom = `
FROM sales v
JOIN journey_promoters jp ON jp.id = v.journey_promoter_id
JOIN journeys j ON j.id = jp.journey_id
JOIN periods p ON p.id = j.period_id
JOIN payment_methods pm ON pm.id = v.payment_method_id
LEFT JOIN period_promoters pp ON pp.period_id = j.period_id AND pp.promoter_id = jp.promoter_id`

const periodColumns = `p.id, p.zone_id, z.name, p.name, p.start_date, p.end_date, p.operative_days, p.status`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	var status string
	if err := row.Scan(&p.ID, &p.ZoneID, &p.ZoneName, &p.Name, &p.StartDate, &p.EndDate, &p.OperativeDays, &status); err != nil {
		return Period{}, err
	}
	p.Status = PeriodStatus(status)
	return p, nil
}

func (r *snapshotReader) Period(ctx context.Context, id uuid.UUID) (Period, error) {
	row := r.q.QueryRow(ctx, `SELECT `+periodColumns+`
FROM periods p JOIN zones z ON z.id = p.zone_id
WHERE p.id = @period_id`, pgx.NamedArgs{"period_id": id})
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, fmt.Errorf("period %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Period{}, fmt.Errorf("analytics: load period: %w", err)
	}
	return p, nil
}

func (r *snapshotReader) PreviousPeriod(ctx context.Context, current Period) (*Period, error) {
	row := r.q.QueryRow(ctx, `SELECT `+periodColumns+`
FROM periods p JOIN zones z ON z.id = p.zone_id
WHERE p.zone_id = @zone_id AND p.id <> @period_id AND p.start_date < @start_date
ORDER BY p.start_date DESC
LIMIT 1`, pgx.NamedArgs{
		"zone_id":    current.ZoneID,
		"period_id":  current.ID,
		"start_date": pgDate(current.StartDate),
	})
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("analytics: load previous period: %w", err)
	}
	return &p, nil
}

func (r *snapshotReader) ActivePeriod(ctx context.Context, zoneID uuid.UUID) (Period, error) {
	row := r.q.QueryRow(ctx, `SELECT `+periodColumns+`
FROM periods p JOIN zones z ON z.id = p.zone_id
WHERE p.zone_id = @zone_id AND p.status = @period_status`, pgx.NamedArgs{
		"zone_id":       zoneID,
		"period_status": string(PeriodActive),
	})
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, fmt.Errorf("active period of zone %s: %w", zoneID, ErrNotFound)
	}
	if err != nil {
		return Period{}, fmt.Errorf("analytics: load active period: %w", err)
	}
	return p, nil
}

func (r *snapshotReader) ActivePeriods(ctx context.Context) ([]Period, error) {
	rows, err := r.q.Query(ctx, `SELECT `+periodColumns+`
FROM periods p JOIN zones z ON z.id = p.zone_id
WHERE p.status = @period_status
ORDER BY z.name`, pgx.NamedArgs{"period_status": string(PeriodActive)})
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Period, error) {
		return scanPeriod(row)
	})
}

func (r *snapshotReader) SalesBuckets(ctx context.Context, scope Scope) ([]SalesBucket, error) {
	pred := scope.SalePredicate()
	rows, err := r.q.Query(ctx, `SELECT pm.category, COALESCE(pp.shift_type, ''), COALESCE(SUM(v.amount), 0), COUNT(v.id)
`+salesFrom+`
WHERE `+pred.SQL()+`
GROUP BY pm.category, COALESCE(pp.shift_type, '')
ORDER BY 1, 2`, pred.Args(nil))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SalesBucket, error) {
		var b SalesBucket
		var category, shift string
		if err := row.Scan(&category, &shift, &b.Amount, &b.Count); err != nil {
			return SalesBucket{}, err
		}
		b.Category = PaymentCategory(category)
		b.Shift = ShiftType(shift)
		return b, nil
	})
}

func (r *snapshotReader) Objectives(ctx context.Context, scope Scope) ([]AssignmentObjective, error) {
	pred := scope.ObjectivePredicate()
	rows, err := r.q.Query(ctx, `SELECT pp.promoter_id, pr.full_name, pp.period_id, pp.shift_type, pp.objective, p.operative_days,
	(SELECT COUNT(*)
	   FROM journey_promoters njp
	   JOIN journeys nj ON nj.id = njp.journey_id
	   JOIN novelty_types nt ON nt.id = njp.novelty_type_id
	  WHERE nj.period_id = pp.period_id AND njp.promoter_id = pp.promoter_id AND NOT nt.operative)
FROM period_promoters pp
JOIN periods p ON p.id = pp.period_id
JOIN promoters pr ON pr.id = pp.promoter_id
WHERE `+pred.SQL()+`
ORDER BY pp.promoter_id, p.start_date`, pred.Args(nil))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AssignmentObjective, error) {
		var o AssignmentObjective
		var shift string
		var nonOperative int64
		if err := row.Scan(&o.PromoterID, &o.PromoterName, &o.PeriodID, &shift, &o.Objective, &o.OperativeDays, &nonOperative); err != nil {
			return AssignmentObjective{}, err
		}
		o.Shift = ShiftType(shift)
		o.NonOperativeDays = int(nonOperative)
		return o, nil
	})
}

func (r *snapshotReader) AssignmentDays(ctx context.Context, scope Scope) ([]AssignmentDay, error) {
	pred := scope.SalePredicate()
	rows, err := r.q.Query(ctx, `SELECT jp.id, j.date, COALESCE(pp.shift_type, ''), COALESCE(SUM(v.amount), 0)
`+salesFrom+`
WHERE `+pred.SQL()+`
GROUP BY jp.id, j.date, pp.shift_type
ORDER BY j.date, jp.id`, pred.Args(nil))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AssignmentDay, error) {
		var d AssignmentDay
		var shift string
		if err := row.Scan(&d.AssignmentID, &d.Date, &shift, &d.Amount); err != nil {
			return AssignmentDay{}, err
		}
		d.Shift = ShiftType(shift)
		return d, nil
	})
}

func (r *snapshotReader) PromoterSales(ctx context.Context, scope Scope) ([]PromoterSales, error) {
	pred := scope.SalePredicate()
	rows, err := r.q.Query(ctx, `SELECT jp.promoter_id, pr.full_name, COALESCE(SUM(v.amount), 0), COUNT(v.id)
`+salesFrom+`
JOIN promoters pr ON pr.id = jp.promoter_id
WHERE `+pred.SQL()+`
GROUP BY jp.promoter_id, pr.full_name`, pred.Args(nil))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PromoterSales, error) {
		var s PromoterSales
		err := row.Scan(&s.PromoterID, &s.PromoterName, &s.Amount, &s.Count)
		return s, err
	})
}

func (r *snapshotReader) ActivePromoters(ctx context.Context, zoneID *uuid.UUID, day time.Time) (int, error) {
	pred := Predicate{}.And("j.date = @today", pgx.NamedArgs{"today": pgDate(day)})
	if zoneID != nil {
		pred = pred.And("j.zone_id = @zone_id", pgx.NamedArgs{"zone_id": *zoneID})
	}
	var count int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(DISTINCT jp.promoter_id)
FROM journey_promoters jp
JOIN journeys j ON j.id = jp.journey_id
WHERE `+pred.SQL(), pred.Args(nil)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *snapshotReader) DailySales(ctx context.Context, scope Scope) ([]DailyPoint, error) {
	pred := scope.SalePredicate()
	rows, err := r.q.Query(ctx, `SELECT j.date, COALESCE(SUM(v.amount), 0), COUNT(v.id)
`+salesFrom+`
WHERE `+pred.SQL()+`
GROUP BY j.date
ORDER BY j.date`, pred.Args(nil))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (DailyPoint, error) {
		var d DailyPoint
		err := row.Scan(&d.Date, &d.Amount, &d.Count)
		return d, err
	})
}

func (r *snapshotReader) PlanSales(ctx context.Context, scope Scope) ([]LabelCount, error) {
	return r.labelCounts(ctx, scope, "JOIN plans pl ON pl.id = v.plan_id", "pl.name")
}

func (r *snapshotReader) PaymentMethodSales(ctx context.Context, scope Scope) ([]LabelCount, error) {
	return r.labelCounts(ctx, scope, "", "pm.name")
}

// labelCounts groups sales by a constant label column, most frequent first.
func (r *snapshotReader) labelCounts(ctx context.Context, scope Scope, join, label string) ([]LabelCount, error) {
	pred := scope.SalePredicate()
	rows, err := r.q.Query(ctx, `SELECT `+label+`, COUNT(v.id), COALESCE(SUM(v.amount), 0)
`+salesFrom+`
`+join+`
WHERE `+pred.SQL()+`
GROUP BY `+label+`
ORDER BY 2 DESC, 1`, pred.Args(nil))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LabelCount, error) {
		var l LabelCount
		err := row.Scan(&l.Label, &l.Count, &l.Amount)
		return l, err
	})
}

func (r *snapshotReader) Journeys(ctx context.Context, scope Scope) ([]JourneySummary, error) {
	pred := scope.JourneyPredicate()
	status := scope.StatusPredicate()
	saleJoin := "v.journey_promoter_id = jp.id"
	if len(scope.Statuses) > 0 {
		saleJoin += " AND " + status.SQL()
	}
	rows, err := r.q.Query(ctx, `SELECT j.id, j.date, COALESCE(u.full_name, ''), COUNT(DISTINCT jp.id),
	COALESCE(SUM(v.amount), 0), COUNT(v.id)
FROM journeys j
JOIN periods p ON p.id = j.period_id
LEFT JOIN users u ON u.id = j.created_by
LEFT JOIN journey_promoters jp ON jp.journey_id = j.id
LEFT JOIN sales v ON `+saleJoin+`
WHERE `+pred.SQL()+`
GROUP BY j.id, j.date, u.full_name
ORDER BY j.date DESC`, pred.Args(status.Args(nil)))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (JourneySummary, error) {
		var js JourneySummary
		var attendance int64
		if err := row.Scan(&js.ID, &js.Date, &js.CreatedBy, &attendance, &js.Amount, &js.Count); err != nil {
			return JourneySummary{}, err
		}
		js.Attendance = int(attendance)
		return js, nil
	})
}

var _ FactStore = (*Repository)(nil)
