package analytichttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/fieldsales/internal/analytics"
	"github.com/odyssey-erp/fieldsales/internal/analytics/export"
	"github.com/odyssey-erp/fieldsales/internal/shared"
)

type stubService struct {
	lastQuery  analytics.ScopeQuery
	lastLimit  int
	lastZone   *uuid.UUID
	period     analytics.PeriodDashboard
	err        error
	weekly     []analytics.DailyPoint
	activeZone uuid.UUID
}

func (s *stubService) Dashboard(ctx context.Context, q analytics.ScopeQuery) (analytics.Dashboard, error) {
	s.lastQuery = q
	if s.err != nil {
		return analytics.Dashboard{}, s.err
	}
	return analytics.Dashboard{
		Scope: analytics.ScopeInfo{Mode: analytics.ScopeActivePeriod},
		KPIs:  analytics.KPISummary{TotalSales: decimal.NewFromInt(1500), TotalCount: 3},
	}, nil
}

func (s *stubService) Ranking(ctx context.Context, q analytics.ScopeQuery, limit int) ([]analytics.RankingEntry, error) {
	s.lastQuery, s.lastLimit = q, limit
	return []analytics.RankingEntry{{PromoterName: "Ana Soto", Sales: decimal.NewFromInt(900)}}, s.err
}

func (s *stubService) PeriodDashboard(ctx context.Context, periodID uuid.UUID, zoneID *uuid.UUID) (analytics.PeriodDashboard, error) {
	s.lastZone = zoneID
	if s.err != nil {
		return analytics.PeriodDashboard{}, s.err
	}
	if zoneID != nil && *zoneID != s.period.Period.ZoneID {
		return analytics.PeriodDashboard{}, analytics.ErrForbidden
	}
	return s.period, nil
}

func (s *stubService) Weekly(ctx context.Context, zoneID *uuid.UUID) ([]analytics.DailyPoint, error) {
	s.lastZone = zoneID
	return s.weekly, s.err
}

func (s *stubService) Plans(ctx context.Context, q analytics.ScopeQuery) ([]analytics.LabelCount, error) {
	s.lastQuery = q
	return []analytics.LabelCount{{Label: "Plan 500", Count: 2}}, s.err
}

func (s *stubService) ActivePeriod(ctx context.Context, zoneID uuid.UUID) (analytics.Period, error) {
	s.activeZone = zoneID
	return analytics.Period{ZoneID: zoneID, Name: "Octubre"}, s.err
}

func newTestRouter(t *testing.T, service *stubService, caller *shared.Caller) http.Handler {
	t.Helper()
	handler := NewHandler(nil, service, export.NewFormatter(language.English), time.Second)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithCaller(req.Context(), caller)))
		})
	})
	handler.MountRoutes(r)
	return r
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

var admin = &shared.Caller{UserID: "admin", Role: shared.RoleAdmin}

func TestDashboardPassesDateRange(t *testing.T) {
	service := &stubService{}
	rr := serve(newTestRouter(t, service, admin), "/analytics/dashboard?start=2025-10-01&end=2025-10-15")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if service.lastQuery.Start == nil || service.lastQuery.End == nil {
		t.Fatalf("expected both dates forwarded")
	}
	if got := service.lastQuery.End.Format(dateLayout); got != "2025-10-15" {
		t.Fatalf("unexpected end date %s", got)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["kpis"]; !ok {
		t.Fatalf("expected kpis in response")
	}
}

func TestDashboardRejectsInvalidFilters(t *testing.T) {
	router := newTestRouter(t, &stubService{}, admin)
	for _, target := range []string{
		"/analytics/dashboard?start=2025-10-01",
		"/analytics/dashboard?start=2025-13-01&end=2025-10-02",
		"/analytics/dashboard?zone_id=abc",
		"/analytics/ranking?limit=-1",
		"/analytics/ranking?limit=ten",
	} {
		rr := serve(router, target)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
			t.Fatalf("%s: unexpected content type %s", target, ct)
		}
	}
}

func TestInvalidScopeFromServiceIsBadRequest(t *testing.T) {
	service := &stubService{err: analytics.ErrInvalidScope}
	rr := serve(newTestRouter(t, service, admin), "/analytics/dashboard")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLeaderIsPinnedToZone(t *testing.T) {
	zone := uuid.New()
	leader := &shared.Caller{UserID: "lead", Role: shared.RoleLeader, ZoneID: &zone}
	service := &stubService{}
	router := newTestRouter(t, service, leader)

	rr := serve(router, "/analytics/ranking?limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if service.lastQuery.ZoneID == nil || *service.lastQuery.ZoneID != zone {
		t.Fatalf("expected leader zone to be applied")
	}
	if service.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d", service.lastLimit)
	}

	rr = serve(router, "/analytics/dashboard?zone_id="+uuid.NewString())
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign zone, got %d", rr.Code)
	}
	rr = serve(router, "/analytics/zones/"+uuid.NewString()+"/active-period")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign active period, got %d", rr.Code)
	}
	rr = serve(router, "/analytics/zones/"+zone.String()+"/active-period")
	if rr.Code != http.StatusOK || service.activeZone != zone {
		t.Fatalf("expected own active period, got %d", rr.Code)
	}
}

func TestPeriodDashboardForbiddenAndNotFound(t *testing.T) {
	zone := uuid.New()
	leader := &shared.Caller{UserID: "lead", Role: shared.RoleLeader, ZoneID: &zone}
	service := &stubService{period: analytics.PeriodDashboard{Period: analytics.Period{ID: uuid.New(), ZoneID: uuid.New()}}}

	rr := serve(newTestRouter(t, service, leader), "/analytics/periods/"+uuid.NewString())
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	service.err = analytics.ErrNotFound
	rr = serve(newTestRouter(t, service, admin), "/analytics/periods/"+uuid.NewString())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = serve(newTestRouter(t, service, admin), "/analytics/periods/not-a-uuid")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLeaderWithoutZoneIsRejected(t *testing.T) {
	leader := &shared.Caller{UserID: "lead", Role: shared.RoleLeader}
	rr := serve(newTestRouter(t, &stubService{}, leader), "/analytics/weekly")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRankingCSVExport(t *testing.T) {
	periodID := uuid.New()
	service := &stubService{period: analytics.PeriodDashboard{
		Period: analytics.Period{ID: periodID},
		Ranking: []analytics.RankingEntry{
			{PromoterName: "Ana Soto", Shift: analytics.ShiftFullTime, Sales: decimal.NewFromInt(1200), Count: 4},
		},
	}}
	rr := serve(newTestRouter(t, service, admin), "/analytics/periods/"+periodID.String()+"/ranking.csv")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %s", ct)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), periodID.String()) {
		t.Fatalf("expected period id in filename")
	}
	if !strings.Contains(rr.Body.String(), "Ana Soto") {
		t.Fatalf("expected promoter row: %s", rr.Body.String())
	}
}

func TestDashboardCSVExport(t *testing.T) {
	rr := serve(newTestRouter(t, &stubService{}, admin), "/analytics/dashboard.csv")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Body.String(), "Metric,Value") {
		t.Fatalf("expected KPI header: %s", rr.Body.String())
	}
}

func TestCharts(t *testing.T) {
	day := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	service := &stubService{
		weekly: []analytics.DailyPoint{
			{Date: day, Amount: decimal.NewFromInt(100)},
			{Date: day.AddDate(0, 0, 1), Amount: decimal.Zero},
		},
		period: analytics.PeriodDashboard{
			Period: analytics.Period{ID: uuid.New(), Name: "Octubre"},
			Distribution: analytics.Distribution{
				FullTime: analytics.CohortSummary{Min: 10, Q1: 12, Median: 15, Q3: 18, Max: 25},
				PartTime: analytics.CohortSummary{Min: 5, Q1: 6, Median: 7, Q3: 9, Max: 12},
			},
		},
	}
	router := newTestRouter(t, service, admin)

	for _, target := range []string{"/analytics/weekly.svg", "/analytics/periods/" + service.period.Period.ID.String() + "/cohorts.svg"} {
		rr := serve(router, target)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", target, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "image/svg+xml" {
			t.Fatalf("%s: unexpected content type %s", target, ct)
		}
		if !strings.HasPrefix(rr.Body.String(), "<svg") {
			t.Fatalf("%s: expected svg body", target)
		}
	}
}
