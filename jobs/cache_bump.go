package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/fieldsales/internal/jobs"
)

// CacheBumper invalidates cached reports.
type CacheBumper interface {
	Bump(ctx context.Context) (int64, error)
}

// CacheBumpJob bumps the report cache version after sales change.
type CacheBumpJob struct {
	Cache   CacheBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCacheBumpJob constructs the job handler.
func NewCacheBumpJob(cache CacheBumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheBumpJob {
	return &CacheBumpJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes cache bump tasks.
func (j *CacheBumpJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("cache bump: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskAnalyticsCacheBump)

	var payload CacheBumpPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return tracker.End(fmt.Errorf("cache bump: decode payload: %w", asynq.SkipRetry))
		}
	}

	version, err := j.Cache.Bump(ctx)
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err != nil {
		logger.Error("bump report cache", slog.String("reason", payload.Reason), slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("report cache bumped", slog.String("reason", payload.Reason), slog.Int64("version", version))
	return tracker.End(nil)
}
