package analytics

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	period    Period
	previous  *Period
	prevSales decimal.Decimal
	buckets   []SalesBucket
	objective []AssignmentObjective
	days      []AssignmentDay
	sales     []PromoterSales
	daily     []DailyPoint
	journeys  []JourneySummary

	snapshots atomic.Int32
	builds    atomic.Int32
	gate      chan struct{}
}

func (f *fakeStore) ReadSnapshot(ctx context.Context, fn func(ctx context.Context, r FactReader) error) error {
	f.snapshots.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return fn(ctx, f)
}

func (f *fakeStore) Period(ctx context.Context, id uuid.UUID) (Period, error) {
	if id != f.period.ID {
		return Period{}, ErrNotFound
	}
	return f.period, nil
}

func (f *fakeStore) PreviousPeriod(ctx context.Context, current Period) (*Period, error) {
	return f.previous, nil
}

func (f *fakeStore) ActivePeriod(ctx context.Context, zoneID uuid.UUID) (Period, error) {
	if zoneID != f.period.ZoneID {
		return Period{}, ErrNotFound
	}
	return f.period, nil
}

func (f *fakeStore) ActivePeriods(ctx context.Context) ([]Period, error) {
	return []Period{f.period}, nil
}

func (f *fakeStore) SalesBuckets(ctx context.Context, scope Scope) ([]SalesBucket, error) {
	if f.previous != nil && scope.Mode == ScopePeriod && scope.PeriodID == f.previous.ID {
		return []SalesBucket{{Category: PaymentCash, Shift: ShiftFullTime, Amount: f.prevSales, Count: 1}}, nil
	}
	return f.buckets, nil
}

func (f *fakeStore) Objectives(ctx context.Context, scope Scope) ([]AssignmentObjective, error) {
	return f.objective, nil
}

func (f *fakeStore) AssignmentDays(ctx context.Context, scope Scope) ([]AssignmentDay, error) {
	return f.days, nil
}

func (f *fakeStore) PromoterSales(ctx context.Context, scope Scope) ([]PromoterSales, error) {
	return f.sales, nil
}

func (f *fakeStore) ActivePromoters(ctx context.Context, zoneID *uuid.UUID, day time.Time) (int, error) {
	return 2, nil
}

func (f *fakeStore) DailySales(ctx context.Context, scope Scope) ([]DailyPoint, error) {
	return f.daily, nil
}

func (f *fakeStore) PlanSales(ctx context.Context, scope Scope) ([]LabelCount, error) {
	return []LabelCount{{Label: "Plan 500", Count: 3, Amount: d(3000)}}, nil
}

func (f *fakeStore) PaymentMethodSales(ctx context.Context, scope Scope) ([]LabelCount, error) {
	return []LabelCount{{Label: "Efectivo", Count: 3, Amount: d(3000)}}, nil
}

func (f *fakeStore) Journeys(ctx context.Context, scope Scope) ([]JourneySummary, error) {
	f.builds.Add(1)
	return f.journeys, nil
}

var testToday = time.Date(2025, 10, 18, 12, 0, 0, 0, time.UTC)

func newFixture() *fakeStore {
	zone := uuid.New()
	ana, beto := uuid.New(), uuid.New()
	prev := Period{ID: uuid.New(), ZoneID: zone, Name: "Septiembre"}
	start := time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)
	return &fakeStore{
		period:    Period{ID: uuid.New(), ZoneID: zone, Name: "Octubre", OperativeDays: 20, Status: PeriodActive},
		previous:  &prev,
		prevSales: d(2000),
		buckets: []SalesBucket{
			{Category: PaymentCash, Shift: ShiftFullTime, Amount: d(1800), Count: 2},
			{Category: PaymentCredit, Shift: ShiftPartTime, Amount: d(600), Count: 1},
		},
		objective: []AssignmentObjective{
			{PromoterID: ana, PromoterName: "Ana", Shift: ShiftFullTime, Objective: d(10000), OperativeDays: 20, NonOperativeDays: 4},
			{PromoterID: beto, PromoterName: "Beto", Shift: ShiftPartTime, Objective: d(5000), OperativeDays: 20, NonOperativeDays: 0},
		},
		days: []AssignmentDay{
			{Date: start, Shift: ShiftFullTime, Amount: d(900)},
			{Date: start.AddDate(0, 0, 1), Shift: ShiftFullTime, Amount: d(900)},
			{Date: start, Shift: ShiftPartTime, Amount: d(600)},
		},
		sales: []PromoterSales{
			{PromoterID: ana, PromoterName: "Ana", Amount: d(1800), Count: 2},
			{PromoterID: beto, PromoterName: "Beto", Amount: d(600), Count: 1},
		},
		daily: []DailyPoint{
			{Date: start, Amount: d(1500), Count: 2},
			{Date: start.AddDate(0, 0, 1), Amount: d(900), Count: 1},
		},
		journeys: []JourneySummary{{ID: uuid.New(), Date: start}, {ID: uuid.New(), Date: start.AddDate(0, 0, 1)}},
	}
}

func newTestService(t *testing.T, store FactStore) (*Service, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(client, time.Minute)
	svc := NewService(store, cache, DefaultOptions(), nil)
	svc.now = func() time.Time { return testToday }
	return svc, cache
}

func TestPeriodDashboard(t *testing.T) {
	store := newFixture()
	svc, _ := newTestService(t, store)

	report, err := svc.PeriodDashboard(context.Background(), store.period.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, "Octubre", report.Period.Name)
	assert.True(t, d(2400).Equal(report.KPIs.TotalSales))
	assert.Equal(t, int64(3), report.KPIs.TotalCount)
	assert.True(t, d(13000).Equal(report.KPIs.GlobalObjective), report.KPIs.GlobalObjective.String())
	assert.Equal(t, 3, report.KPIs.ManDays)
	assert.True(t, d(800).Equal(report.KPIs.DailyAveragePerPromoter))
	assert.Equal(t, 2, report.KPIs.LoadedDays)
	assert.Equal(t, 20, report.KPIs.OperativeDays)
	assert.Equal(t, 2, report.KPIs.ActiveToday)

	assert.Equal(t, 2, report.Distribution.FullTime.Count)
	assert.InDelta(t, 100, report.Distribution.FullTime.Median, 1e-9)
	assert.Equal(t, ConclusionSimilar, report.MannWhitney.Conclusion)

	require.Len(t, report.Ranking, 2)
	assert.Equal(t, "Ana", report.Ranking[0].PromoterName)
	assert.True(t, d(8000).Equal(report.Ranking[0].Objective))

	require.True(t, report.Comparison.Exists)
	assert.InDelta(t, 20, *report.Comparison.DifferencePct, 1e-9)
	require.Len(t, report.Weekdays, 2)
	assert.Equal(t, 1, report.Weekdays[0].ISODay)
	assert.Len(t, report.TopPlans, 1)
}

func TestPeriodDashboardCachesAndBumps(t *testing.T) {
	store := newFixture()
	svc, cache := newTestService(t, store)
	ctx := context.Background()

	first, err := svc.PeriodDashboard(ctx, store.period.ID, nil)
	require.NoError(t, err)
	second, err := svc.PeriodDashboard(ctx, store.period.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.snapshots.Load(), "second read served from cache")
	assert.True(t, first.KPIs.TotalSales.Equal(second.KPIs.TotalSales))

	store.buckets = append(store.buckets, SalesBucket{Category: PaymentDebit, Shift: ShiftFullTime, Amount: d(100), Count: 1})
	_, err = cache.Bump(ctx)
	require.NoError(t, err)

	third, err := svc.PeriodDashboard(ctx, store.period.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.snapshots.Load())
	assert.True(t, d(2500).Equal(third.KPIs.TotalSales))
}

func TestPeriodDashboardZoneRestriction(t *testing.T) {
	store := newFixture()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	own := store.period.ZoneID
	_, err := svc.PeriodDashboard(ctx, store.period.ID, &own)
	require.NoError(t, err)

	other := uuid.New()
	_, err = svc.PeriodDashboard(ctx, store.period.ID, &other)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.PeriodDashboard(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDashboardIsIdempotent(t *testing.T) {
	store := newFixture()
	svc, _ := newTestService(t, store)
	svc.cache = nil
	ctx := context.Background()

	a, err := svc.Dashboard(ctx, ScopeQuery{})
	require.NoError(t, err)
	b, err := svc.Dashboard(ctx, ScopeQuery{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.snapshots.Load())
	assert.Equal(t, a.Ranking, b.Ranking)
	assert.Equal(t, a.MannWhitney, b.MannWhitney)
	assert.Equal(t, ScopeActivePeriod, a.Scope.Mode)
	assert.Equal(t, "2025-10-18", a.Scope.Today)
}

func TestDashboardRejectsPartialRange(t *testing.T) {
	svc, _ := newTestService(t, newFixture())
	start := testToday
	_, err := svc.Dashboard(context.Background(), ScopeQuery{Start: &start})
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestConcurrentReportsShareOneBuild(t *testing.T) {
	store := newFixture()
	store.gate = make(chan struct{})
	svc, _ := newTestService(t, store)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ranking(context.Background(), ScopeQuery{}, 1)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(store.gate)
	wg.Wait()
	assert.Equal(t, int32(1), store.snapshots.Load())
}

func TestWeeklyFillsMissingDays(t *testing.T) {
	store := newFixture()
	store.daily = []DailyPoint{{Date: time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC), Amount: d(400), Count: 1}}
	svc, _ := newTestService(t, store)

	points, err := svc.Weekly(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, points, 7)
	assert.Equal(t, "2025-10-12", points[0].Date.Format(time.DateOnly))
	assert.True(t, d(400).Equal(points[5].Amount))
	assert.True(t, points[6].Amount.IsZero())
}

type recordingObserver struct {
	mu       sync.Mutex
	kinds    []string
	outcomes map[string]int
}

func (o *recordingObserver) ObserveReport(kind, outcome string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds = append(o.kinds, kind)
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[outcome]++
}

func TestServiceReportsToObserver(t *testing.T) {
	store := newFixture()
	svc, _ := newTestService(t, store)
	observer := &recordingObserver{}
	svc.WithObserver(observer)
	ctx := context.Background()

	_, err := svc.Plans(ctx, ScopeQuery{})
	require.NoError(t, err)
	_, err = svc.Plans(ctx, ScopeQuery{})
	require.NoError(t, err)

	assert.Equal(t, []string{"plans", "plans"}, observer.kinds)
	assert.Equal(t, map[string]int{ReportMiss: 1, ReportHit: 1}, observer.outcomes)
}

func TestJoinedBuildsAreNotCacheHits(t *testing.T) {
	store := newFixture()
	store.gate = make(chan struct{})
	svc, _ := newTestService(t, store)
	observer := &recordingObserver{}
	svc.WithObserver(observer)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Plans(context.Background(), ScopeQuery{})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(store.gate)
	wg.Wait()

	assert.Equal(t, int32(1), store.snapshots.Load())
	assert.Equal(t, map[string]int{ReportMiss: 1, ReportShared: 3}, observer.outcomes)
}

func TestUnknownTargetPeriodIsNotFound(t *testing.T) {
	store := newFixture()
	svc, _ := newTestService(t, store)
	ctx := context.Background()
	missing := uuid.New()
	q := ScopeQuery{PeriodID: &missing}

	_, err := svc.Dashboard(ctx, q)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Ranking(ctx, q, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Plans(ctx, q)
	assert.ErrorIs(t, err, ErrNotFound)

	known := store.period.ID
	report, err := svc.Dashboard(ctx, ScopeQuery{PeriodID: &known})
	require.NoError(t, err)
	assert.Equal(t, ScopePeriod, report.Scope.Mode)
}

func TestForeignPeriodIsRejectedBeforeBuild(t *testing.T) {
	store := newFixture()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	other := uuid.New()
	_, err := svc.PeriodDashboard(ctx, store.period.ID, &other)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int32(0), store.builds.Load())

	_, err = svc.PeriodDashboard(ctx, store.period.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.builds.Load())

	_, err = svc.PeriodDashboard(ctx, store.period.ID, &other)
	assert.ErrorIs(t, err, ErrForbidden, "cached report is not served to another zone")
}
