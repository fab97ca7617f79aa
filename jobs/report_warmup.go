package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/fieldsales/internal/analytics"
	jobmetrics "github.com/odyssey-erp/fieldsales/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const warmupPeriodTimeout = 20 * time.Second

// WarmupService is the subset of the analytics service the warmup drives.
type WarmupService interface {
	ActivePeriods(ctx context.Context) ([]analytics.Period, error)
	Dashboard(ctx context.Context, q analytics.ScopeQuery) (analytics.Dashboard, error)
	PeriodDashboard(ctx context.Context, periodID uuid.UUID, zoneID *uuid.UUID) (analytics.PeriodDashboard, error)
}

// ReportWarmupJob pre-populates the report cache for every Active period.
type ReportWarmupJob struct {
	Reports WarmupService
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reports WarmupService, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("report warmup: handler not configured")
	}
	tracker := j.metrics().Track(TaskAnalyticsReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		resultErr = fmt.Errorf("report warmup: decode payload: %w", asynq.SkipRetry)
		return resultErr
	}
	var zoneFilter *uuid.UUID
	if payload.ZoneID != "" {
		id, err := uuid.Parse(payload.ZoneID)
		if err != nil {
			resultErr = fmt.Errorf("report warmup: zone id %q: %w", payload.ZoneID, asynq.SkipRetry)
			return resultErr
		}
		zoneFilter = &id
	}

	logger := j.logger()
	start := j.now()
	logger.Info("starting report warmup", slog.String("zone_id", payload.ZoneID))

	periods, err := j.Reports.ActivePeriods(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load active periods", slog.Any("error", err))
		return resultErr
	}

	if zoneFilter == nil {
		if _, err := j.Reports.Dashboard(ctx, analytics.ScopeQuery{}); err != nil {
			resultErr = err
			logger.Error("warm global dashboard", slog.Any("error", err))
			return resultErr
		}
	}

	warmed := 0
	for _, period := range periods {
		if zoneFilter != nil && period.ZoneID != *zoneFilter {
			continue
		}
		if err := j.warmPeriod(ctx, period); err != nil {
			resultErr = err
			logger.Error("warm period",
				slog.String("period_id", period.ID.String()),
				slog.String("zone_id", period.ZoneID.String()),
				slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed report warmup", slog.Int("periods", warmed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ReportWarmupJob) warmPeriod(ctx context.Context, period analytics.Period) error {
	periodCtx, cancel := context.WithTimeout(ctx, warmupPeriodTimeout)
	defer cancel()

	zone := period.ZoneID
	if _, err := j.Reports.Dashboard(periodCtx, analytics.ScopeQuery{ZoneID: &zone}); err != nil {
		return err
	}
	report, err := j.Reports.PeriodDashboard(periodCtx, period.ID, nil)
	if err != nil {
		return err
	}
	j.metrics().AddObjectiveAnomalies(zone.String(), len(report.Anomalies))
	return nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
