package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/fieldsales/internal/analytics"
	"github.com/odyssey-erp/fieldsales/internal/analytics/export"
	"github.com/odyssey-erp/fieldsales/internal/analytics/svg"
	"github.com/odyssey-erp/fieldsales/internal/platform/httpx"
	"github.com/odyssey-erp/fieldsales/internal/shared"
)

const (
	dateLayout            = "2006-01-02"
	defaultRequestTimeout = 5 * time.Second
)

// Service is the report contract used by the handler.
type Service interface {
	Dashboard(ctx context.Context, q analytics.ScopeQuery) (analytics.Dashboard, error)
	Ranking(ctx context.Context, q analytics.ScopeQuery, limit int) ([]analytics.RankingEntry, error)
	PeriodDashboard(ctx context.Context, periodID uuid.UUID, zoneID *uuid.UUID) (analytics.PeriodDashboard, error)
	Weekly(ctx context.Context, zoneID *uuid.UUID) ([]analytics.DailyPoint, error)
	Plans(ctx context.Context, q analytics.ScopeQuery) ([]analytics.LabelCount, error)
	ActivePeriod(ctx context.Context, zoneID uuid.UUID) (analytics.Period, error)
}

// Handler serves the promoter analytics endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Service
	validate  *validator.Validate
	formatter export.Formatter
	timeout   time.Duration
	csvPool   sync.Pool
}

// NewHandler constructs the analytics HTTP handler. A zero timeout uses the
// default request timeout.
func NewHandler(logger *slog.Logger, service Service, formatter export.Formatter, timeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	h := &Handler{
		logger:    logger,
		service:   service,
		validate:  validator.New(),
		formatter: formatter,
		timeout:   timeout,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

type scopeParams struct {
	Start  string `validate:"required_with=End,omitempty,datetime=2006-01-02"`
	End    string `validate:"required_with=Start,omitempty,datetime=2006-01-02"`
	ZoneID string `validate:"omitempty,uuid"`
	Limit  int    `validate:"gte=0,lte=200"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, _, ok := h.parseScope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	dashboard, err := h.service.Dashboard(ctx, q)
	if err != nil {
		h.respondError(w, "load dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboard)
}

func (h *Handler) handleDashboardCSV(w http.ResponseWriter, r *http.Request) {
	q, _, ok := h.parseScope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	dashboard, err := h.service.Dashboard(ctx, q)
	if err != nil {
		h.respondError(w, "load dashboard", err)
		return
	}
	label := string(dashboard.Scope.Mode)
	if dashboard.Scope.Start != "" {
		label = dashboard.Scope.Start + ".." + dashboard.Scope.End
	}
	h.writeCSV(w, "dashboard.csv", func(buf *bytes.Buffer) error {
		return export.WriteKPICSV(buf, h.formatter, dashboard.KPIs, label)
	})
}

func (h *Handler) handleRanking(w http.ResponseWriter, r *http.Request) {
	q, limit, ok := h.parseScope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ranking, err := h.service.Ranking(ctx, q, limit)
	if err != nil {
		h.respondError(w, "load ranking", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ranking)
}

func (h *Handler) handlePlans(w http.ResponseWriter, r *http.Request) {
	q, _, ok := h.parseScope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	plans, err := h.service.Plans(ctx, q)
	if err != nil {
		h.respondError(w, "load plans", err)
		return
	}
	httpx.JSON(w, http.StatusOK, plans)
}

func (h *Handler) handleWeekly(w http.ResponseWriter, r *http.Request) {
	points, ok := h.loadWeekly(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, points)
}

func (h *Handler) handleWeeklySVG(w http.ResponseWriter, r *http.Request) {
	points, ok := h.loadWeekly(w, r)
	if !ok {
		return
	}
	values := make([]float64, len(points))
	labels := make([]string, len(points))
	for i, p := range points {
		values[i] = p.Amount.InexactFloat64()
		labels[i] = p.Date.Format("02/01")
	}
	out, err := svg.TrendLine(svg.DefaultWidth, svg.DefaultHeight, values, labels, svg.LineOpts{
		Style:    svg.Style{Title: "Weekly sales", Description: "Sales per day over the last seven days"},
		ShowDots: true,
	})
	if err != nil {
		h.respondError(w, "render weekly chart", err)
		return
	}
	writeSVG(w, out)
}

func (h *Handler) loadWeekly(w http.ResponseWriter, r *http.Request) ([]analytics.DailyPoint, bool) {
	zone, ok := h.zoneFromQuery(w, r)
	if !ok {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	points, err := h.service.Weekly(ctx, zone)
	if err != nil {
		h.respondError(w, "load weekly", err)
		return nil, false
	}
	return points, true
}

func (h *Handler) handlePeriod(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadPeriod(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handlePeriodRankingCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadPeriod(w, r)
	if !ok {
		return
	}
	name := fmt.Sprintf("ranking-%s.csv", report.Period.ID)
	h.writeCSV(w, name, func(buf *bytes.Buffer) error {
		return export.WriteRankingCSV(buf, h.formatter, report.Ranking)
	})
}

func (h *Handler) handlePeriodCohortsSVG(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadPeriod(w, r)
	if !ok {
		return
	}
	full, part := report.Distribution.FullTime, report.Distribution.PartTime
	out, err := svg.GroupedBars(svg.DefaultWidth, svg.DefaultHeight,
		[]string{"min", "Q1", "median", "Q3", "max"},
		[]svg.Series{
			{Label: "Full time", Values: []float64{full.Min, full.Q1, full.Median, full.Q3, full.Max}},
			{Label: "Part time", Values: []float64{part.Min, part.Q1, part.Median, part.Q3, part.Max}},
		},
		svg.Style{Title: report.Period.Name, Description: "Sales per hour by shift"},
	)
	if err != nil {
		h.respondError(w, "render cohort chart", err)
		return
	}
	writeSVG(w, out)
}

func (h *Handler) loadPeriod(w http.ResponseWriter, r *http.Request) (analytics.PeriodDashboard, bool) {
	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "periodID must be a uuid")
		return analytics.PeriodDashboard{}, false
	}
	zone, ok := h.restriction(w, r)
	if !ok {
		return analytics.PeriodDashboard{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.PeriodDashboard(ctx, periodID, zone)
	if err != nil {
		h.respondError(w, "load period dashboard", err)
		return analytics.PeriodDashboard{}, false
	}
	return report, true
}

func (h *Handler) handleActivePeriod(w http.ResponseWriter, r *http.Request) {
	zoneID, err := uuid.Parse(chi.URLParam(r, "zoneID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "zoneID must be a uuid")
		return
	}
	restricted, ok := h.restriction(w, r)
	if !ok {
		return
	}
	if restricted != nil && *restricted != zoneID {
		h.respondError(w, "active period", analytics.ErrForbidden)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	period, err := h.service.ActivePeriod(ctx, zoneID)
	if err != nil {
		h.respondError(w, "load active period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

// parseScope validates the common report filters and pins leaders to their zone.
func (h *Handler) parseScope(w http.ResponseWriter, r *http.Request) (analytics.ScopeQuery, int, bool) {
	values := r.URL.Query()
	params := scopeParams{
		Start:  strings.TrimSpace(values.Get("start")),
		End:    strings.TrimSpace(values.Get("end")),
		ZoneID: strings.TrimSpace(values.Get("zone_id")),
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a number")
			return analytics.ScopeQuery{}, 0, false
		}
		params.Limit = limit
	}
	if err := h.validate.Struct(params); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return analytics.ScopeQuery{}, 0, false
	}

	var q analytics.ScopeQuery
	if params.Start != "" {
		start, _ := time.Parse(dateLayout, params.Start)
		end, _ := time.Parse(dateLayout, params.End)
		q.Start, q.End = &start, &end
	}
	zone, ok := h.pinZone(w, r, params.ZoneID)
	if !ok {
		return analytics.ScopeQuery{}, 0, false
	}
	q.ZoneID = zone
	return q, params.Limit, true
}

func (h *Handler) zoneFromQuery(w http.ResponseWriter, r *http.Request) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("zone_id"))
	if err := h.validate.Var(raw, "omitempty,uuid"); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "zone_id must be a uuid")
		return nil, false
	}
	return h.pinZone(w, r, raw)
}

// pinZone merges the requested zone with the caller's restriction. A leader
// asking for another zone is rejected.
func (h *Handler) pinZone(w http.ResponseWriter, r *http.Request, requested string) (*uuid.UUID, bool) {
	restricted, ok := h.restriction(w, r)
	if !ok {
		return nil, false
	}
	var zone *uuid.UUID
	if requested != "" {
		id := uuid.MustParse(requested)
		zone = &id
	}
	if restricted == nil {
		return zone, true
	}
	if zone != nil && *zone != *restricted {
		h.respondError(w, "pin zone", analytics.ErrForbidden)
		return nil, false
	}
	return restricted, true
}

func (h *Handler) restriction(w http.ResponseWriter, r *http.Request) (*uuid.UUID, bool) {
	zone, err := shared.CallerFromContext(r.Context()).ZoneRestriction()
	if err != nil {
		h.respondError(w, "caller zone", err)
		return nil, false
	}
	return zone, true
}

func (h *Handler) writeCSV(w http.ResponseWriter, filename string, write func(*bytes.Buffer) error) {
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := write(buf); err != nil {
		h.respondError(w, "write csv", err)
		return
	}
	httpx.Attachment(w, "text/csv; charset=utf-8", filename, buf.Bytes())
}

func writeSVG(w http.ResponseWriter, body []byte) {
	httpx.Inline(w, "image/svg+xml", body)
}

// respondError maps report errors onto problem responses.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidScope):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, analytics.ErrNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err.Error()))
	case errors.Is(err, analytics.ErrForbidden), errors.Is(err, shared.ErrForbidden):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, shared.ErrUnauthenticated):
		httpx.RespondError(w, httpx.ErrUnauthorized)
	default:
		level := slog.LevelError
		if httpx.StatusFor(err) != http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		h.logger.Log(context.Background(), level, "analytics request failed", slog.String("op", op), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(fields, "; ")
}
