package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// FactReader exposes the read queries of the fact store. All calls made
// through one FactReader observe the same snapshot.
type FactReader interface {
	Period(ctx context.Context, id uuid.UUID) (Period, error)
	PreviousPeriod(ctx context.Context, current Period) (*Period, error)
	ActivePeriod(ctx context.Context, zoneID uuid.UUID) (Period, error)
	ActivePeriods(ctx context.Context) ([]Period, error)
	SalesBuckets(ctx context.Context, scope Scope) ([]SalesBucket, error)
	Objectives(ctx context.Context, scope Scope) ([]AssignmentObjective, error)
	AssignmentDays(ctx context.Context, scope Scope) ([]AssignmentDay, error)
	PromoterSales(ctx context.Context, scope Scope) ([]PromoterSales, error)
	ActivePromoters(ctx context.Context, zoneID *uuid.UUID, day time.Time) (int, error)
	DailySales(ctx context.Context, scope Scope) ([]DailyPoint, error)
	PlanSales(ctx context.Context, scope Scope) ([]LabelCount, error)
	PaymentMethodSales(ctx context.Context, scope Scope) ([]LabelCount, error)
	Journeys(ctx context.Context, scope Scope) ([]JourneySummary, error)
}

// FactStore opens read-only snapshots of the fact store.
type FactStore interface {
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context, r FactReader) error) error
}

// Options tunes report computation.
type Options struct {
	ShiftHours      ShiftHours
	Ties            TieMethod
	Alpha           float64
	CountedStatuses []SaleStatus
	Location        *time.Location
	RankingLimit    int
}

// DefaultOptions returns the standard engine configuration.
func DefaultOptions() Options {
	return Options{
		ShiftHours:   DefaultShiftHours,
		Ties:         TiesPositional,
		Alpha:        DefaultAlpha,
		Location:     time.UTC,
		RankingLimit: 10,
	}
}

// Service coordinates report computation with the cache layer.
type Service struct {
	store    FactStore
	cache    *Cache
	opts     Options
	logger   *slog.Logger
	group    singleflight.Group
	observer ReportObserver
	now      func() time.Time
}

// Report outcomes passed to a ReportObserver.
const (
	ReportHit    = "hit"
	ReportMiss   = "miss"
	ReportShared = "shared"
)

// ReportObserver is notified of every report served through the cache. The
// outcome is ReportHit when the report came from the cache, ReportMiss when
// this call built it and ReportShared when it joined another caller's build.
type ReportObserver interface {
	ObserveReport(kind, outcome string, elapsed time.Duration)
}

type loadedReport struct {
	raw   json.RawMessage
	built bool
}

// NewService wires a FactStore with a Cache helper.
func NewService(store FactStore, cache *Cache, opts Options, logger *slog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ShiftHours == (ShiftHours{}) {
		opts.ShiftHours = DefaultShiftHours
	}
	if opts.Ties == "" {
		opts.Ties = TiesPositional
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, opts: opts, logger: logger, now: time.Now}
}

// WithObserver attaches a report observer.
func (s *Service) WithObserver(o ReportObserver) *Service {
	s.observer = o
	return s
}

// Options returns the effective engine options.
func (s *Service) Options() Options {
	return s.opts
}

func (s *Service) today() time.Time {
	return dateOnly(s.now().In(s.opts.Location))
}

// cached deduplicates concurrent builds of the same key and serves them
// through the versioned cache.
func (s *Service) cached(ctx context.Context, parts []string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		return fmt.Errorf("analytics: build cache key: %w", err)
	}
	start := time.Now()
	executed := false
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		executed = true
		var out loadedReport
		err := s.cache.FetchJSON(ctx, key, &out.raw, func(ctx context.Context) (interface{}, error) {
			out.built = true
			return loader(ctx)
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	report := v.(loadedReport)
	if s.observer != nil && len(parts) > 1 {
		outcome := ReportHit
		switch {
		case report.built && executed:
			outcome = ReportMiss
		case report.built:
			outcome = ReportShared
		}
		s.observer.ObserveReport(parts[1], outcome, time.Since(start))
	}
	return json.Unmarshal(report.raw, dest)
}

// Dashboard builds the global report for an active-period, date-range or
// period scope. An unknown target period yields ErrNotFound.
func (s *Service) Dashboard(ctx context.Context, q ScopeQuery) (Dashboard, error) {
	scope, err := ResolveScope(q, s.today(), s.opts.CountedStatuses)
	if err != nil {
		return Dashboard{}, err
	}
	var out Dashboard
	err = s.cached(ctx, keyDashboard(scope, s.opts.RankingLimit), &out, func(ctx context.Context) (interface{}, error) {
		return s.buildDashboard(ctx, scope)
	})
	return out, err
}

// Ranking returns the full promoter ranking of a scope, truncated to limit when positive.
func (s *Service) Ranking(ctx context.Context, q ScopeQuery, limit int) ([]RankingEntry, error) {
	scope, err := ResolveScope(q, s.today(), s.opts.CountedStatuses)
	if err != nil {
		return nil, err
	}
	var out []RankingEntry
	err = s.cached(ctx, keyRanking(scope), &out, func(ctx context.Context) (interface{}, error) {
		var ranking []RankingEntry
		err := s.store.ReadSnapshot(ctx, func(ctx context.Context, r FactReader) error {
			if err := requirePeriod(ctx, r, scope); err != nil {
				return err
			}
			objectives, _, err := s.readObjectives(ctx, r, scope)
			if err != nil {
				return err
			}
			sales, err := r.PromoterSales(ctx, scope)
			if err != nil {
				return fmt.Errorf("analytics: promoter sales: %w", err)
			}
			ranking = Rank(scope.Mode, sales, objectives)
			return nil
		})
		return ranking, err
	})
	if err != nil {
		return nil, err
	}
	return TopN(out, limit), nil
}

// PeriodDashboard builds the detailed report of one period. A non-nil zoneID
// restricts access to periods of that zone; the period header is checked
// before any report is built or read from the cache.
func (s *Service) PeriodDashboard(ctx context.Context, periodID uuid.UUID, zoneID *uuid.UUID) (PeriodDashboard, error) {
	if zoneID != nil {
		if err := s.checkPeriodZone(ctx, periodID, *zoneID); err != nil {
			return PeriodDashboard{}, err
		}
	}
	today := s.today()
	var out PeriodDashboard
	err := s.cached(ctx, keyPeriodDashboard(periodID, today, s.opts.CountedStatuses), &out, func(ctx context.Context) (interface{}, error) {
		return s.buildPeriodDashboard(ctx, periodID, today)
	})
	if err != nil {
		return PeriodDashboard{}, err
	}
	return out, nil
}

// requirePeriod loads the target period of a period scope so an unknown id
// fails with ErrNotFound instead of producing an empty report.
func requirePeriod(ctx context.Context, r FactReader, scope Scope) error {
	if scope.Mode != ScopePeriod {
		return nil
	}
	_, err := r.Period(ctx, scope.PeriodID)
	return err
}

func (s *Service) checkPeriodZone(ctx context.Context, periodID, zoneID uuid.UUID) error {
	return s.store.ReadSnapshot(ctx, func(ctx context.Context, r FactReader) error {
		period, err := r.Period(ctx, periodID)
		if err != nil {
			return err
		}
		if period.ZoneID != zoneID {
			return ErrForbidden
		}
		return nil
	})
}

// Weekly returns the sales of the last seven days, today included.
func (s *Service) Weekly(ctx context.Context, zoneID *uuid.UUID) ([]DailyPoint, error) {
	today := s.today()
	start := today.AddDate(0, 0, -6)
	scope := DateRangeScope(start, today, zoneID, today, s.opts.CountedStatuses)
	var out []DailyPoint
	err := s.cached(ctx, keyWeekly(scope), &out, func(ctx context.Context) (interface{}, error) {
		var points []DailyPoint
		err := s.store.ReadSnapshot(ctx, func(ctx context.Context, r FactReader) error {
			daily, err := r.DailySales(ctx, scope)
			if err != nil {
				return fmt.Errorf("analytics: daily sales: %w", err)
			}
			points = fillDays(daily, start, today)
			return nil
		})
		return points, err
	})
	return out, err
}

// Plans returns sale counts and amounts per plan for the scope.
func (s *Service) Plans(ctx context.Context, q ScopeQuery) ([]LabelCount, error) {
	scope, err := ResolveScope(q, s.today(), s.opts.CountedStatuses)
	if err != nil {
		return nil, err
	}
	var out []LabelCount
	err = s.cached(ctx, keyPlans(scope), &out, func(ctx context.Context) (interface{}, error) {
		var plans []LabelCount
		err := s.store.ReadSnapshot(ctx, func(ctx context.Context, r FactReader) error {
			if err := requirePeriod(ctx, r, scope); err != nil {
				return err
			}
			var err error
			plans, err = r.PlanSales(ctx, scope)
			if err != nil {
				return fmt.Errorf("analytics: plan sales: %w", err)
			}
			return nil
		})
		return plans, err
	})
	return out, err
}

// ActivePeriod returns the Active period of a zone.
func (s *Service) ActivePeriod(ctx context.Context, zoneID uuid.UUID) (Period, error) {
	var period Period
	err := s.store.ReadSnapshot(ctx, func(ctx context.Context, r FactReader) error {
		var err error
		period, err = r.ActivePeriod(ctx, zoneID)
		return err
	})
	return period, err
}

// ActivePeriods lists the Active period of every zone.
func (s *Service) ActivePeriods(ctx context.Context) ([]Period, error) {
	var periods []Period
	err := s.store.ReadSnapshot(ctx, func(ctx context.Context, r FactReader) error {
		var err error
		periods, err = r.ActivePeriods(ctx)
		return err
	})
	return periods, err
}

type reportCore struct {
	kpis         KPISummary
	objectives   []NormalizedObjective
	anomalies    []ObjectiveAnomaly
	distribution Distribution
	mannWhitney  MannWhitneyResult
	ranking      []RankingEntry
	manDays      int
}

func (s *Service) readCore(ctx context.Context, r FactReader, scope Scope) (reportCore, error) {
	var core reportCore
	buckets, err := r.SalesBuckets(ctx, scope)
	if err != nil {
		return core, fmt.Errorf("analytics: sales buckets: %w", err)
	}
	core.objectives, core.anomalies, err = s.readObjectives(ctx, r, scope)
	if err != nil {
		return core, err
	}
	activeToday, err := r.ActivePromoters(ctx, scope.ZoneID, scope.Today)
	if err != nil {
		return core, fmt.Errorf("analytics: active promoters: %w", err)
	}
	days, err := r.AssignmentDays(ctx, scope)
	if err != nil {
		return core, fmt.Errorf("analytics: assignment days: %w", err)
	}
	sales, err := r.PromoterSales(ctx, scope)
	if err != nil {
		return core, fmt.Errorf("analytics: promoter sales: %w", err)
	}

	core.kpis = AggregateKPIs(buckets, core.objectives, activeToday)
	core.distribution = Summarize(days, s.opts.ShiftHours)
	core.mannWhitney = MannWhitney(core.distribution.FullTime.Raw, core.distribution.PartTime.Raw, s.opts.Ties, s.opts.Alpha)
	core.ranking = Rank(scope.Mode, sales, core.objectives)
	core.manDays = len(days)
	return core, nil
}

func (s *Service) readObjectives(ctx context.Context, r FactReader, scope Scope) ([]NormalizedObjective, []ObjectiveAnomaly, error) {
	rows, err := r.Objectives(ctx, scope)
	if err != nil {
		return nil, nil, fmt.Errorf("analytics: objectives: %w", err)
	}
	objectives, anomalies := NormalizeObjectives(rows)
	for _, a := range anomalies {
		s.logger.Warn("non-operative days exceed operative days",
			slog.String("promoter_id", a.PromoterID.String()),
			slog.String("period_id", a.PeriodID.String()),
			slog.Int("operative_days", a.OperativeDays),
			slog.Int("non_operative_days", a.NonOperativeDays))
	}
	return objectives, anomalies, nil
}

func (s *Service) buildDashboard(ctx context.Context, scope Scope) (Dashboard, error) {
	var out Dashboard
	err := s.store.ReadSnapshot(ctx, func(ctx context.Context, r FactReader) error {
		if err := requirePeriod(ctx, r, scope); err != nil {
			return err
		}
		core, err := s.readCore(ctx, r, scope)
		if err != nil {
			return err
		}
		out = Dashboard{
			Scope:        newScopeInfo(scope),
			KPIs:         core.kpis,
			Distribution: core.distribution,
			MannWhitney:  core.mannWhitney,
			Ranking:      TopN(core.ranking, s.opts.RankingLimit),
			Anomalies:    core.anomalies,
		}
		return nil
	})
	return out, err
}

func (s *Service) buildPeriodDashboard(ctx context.Context, periodID uuid.UUID, today time.Time) (PeriodDashboard, error) {
	var out PeriodDashboard
	err := s.store.ReadSnapshot(ctx, func(ctx context.Context, r FactReader) error {
		period, err := r.Period(ctx, periodID)
		if err != nil {
			return err
		}
		scope := PeriodScope(period, today, s.opts.CountedStatuses)
		core, err := s.readCore(ctx, r, scope)
		if err != nil {
			return err
		}
		journeys, err := r.Journeys(ctx, scope)
		if err != nil {
			return fmt.Errorf("analytics: journeys: %w", err)
		}
		daily, err := r.DailySales(ctx, scope)
		if err != nil {
			return fmt.Errorf("analytics: daily sales: %w", err)
		}
		plans, err := r.PlanSales(ctx, scope)
		if err != nil {
			return fmt.Errorf("analytics: plan sales: %w", err)
		}
		methods, err := r.PaymentMethodSales(ctx, scope)
		if err != nil {
			return fmt.Errorf("analytics: payment method sales: %w", err)
		}
		comparison, err := s.comparePrevious(ctx, r, period, core.kpis.TotalSales, today)
		if err != nil {
			return err
		}

		out = PeriodDashboard{
			Period: period,
			KPIs: PeriodKPIs{
				KPISummary:              core.kpis,
				ManDays:                 core.manDays,
				DailyAveragePerPromoter: safeDiv(core.kpis.TotalSales, decimal.NewFromInt(int64(core.manDays))),
				LoadedDays:              len(journeys),
				OperativeDays:           period.OperativeDays,
			},
			Distribution:      core.distribution,
			MannWhitney:       core.mannWhitney,
			Segmentation:      segmentByShift(core.kpis, core.objectives),
			TopPlans:          plans,
			TopPaymentMethods: methods,
			Weekdays:          weekdaySeries(daily),
			Daily:             daily,
			Ranking:           core.ranking,
			Journeys:          journeys,
			Comparison:        comparison,
			Anomalies:         core.anomalies,
		}
		return nil
	})
	return out, err
}

func (s *Service) comparePrevious(ctx context.Context, r FactReader, period Period, total decimal.Decimal, today time.Time) (PeriodComparison, error) {
	prev, err := r.PreviousPeriod(ctx, period)
	if err != nil {
		return PeriodComparison{}, fmt.Errorf("analytics: previous period: %w", err)
	}
	if prev == nil {
		return ComparePeriods(total, nil, total), nil
	}
	buckets, err := r.SalesBuckets(ctx, PeriodScope(*prev, today, s.opts.CountedStatuses))
	if err != nil {
		return PeriodComparison{}, fmt.Errorf("analytics: previous period sales: %w", err)
	}
	prevKPIs := AggregateKPIs(buckets, nil, 0)
	return ComparePeriods(total, prev, prevKPIs.TotalSales), nil
}

func keyDashboard(scope Scope, limit int) []string {
	return []string{"analytics", "dashboard", scope.CacheKey(), strconv.Itoa(limit)}
}

func keyRanking(scope Scope) []string {
	return []string{"analytics", "ranking", scope.CacheKey()}
}

func keyPeriodDashboard(periodID uuid.UUID, today time.Time, statuses []SaleStatus) []string {
	scope := Scope{Mode: ScopePeriod, PeriodID: periodID, Today: today, Statuses: statuses}
	return []string{"analytics", "period", scope.CacheKey(), today.Format(time.DateOnly)}
}

func keyWeekly(scope Scope) []string {
	return []string{"analytics", "weekly", scope.CacheKey()}
}

func keyPlans(scope Scope) []string {
	return []string{"analytics", "plans", scope.CacheKey()}
}
