package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnalyticsReportWarmup rebuilds the cached reports of active periods.
	TaskAnalyticsReportWarmup = "analytics:report_warmup"
	// TaskAnalyticsCacheBump invalidates every cached report.
	TaskAnalyticsCacheBump = "analytics:cache_bump"
)

// ReportWarmupPayload limits a warmup to one zone. An empty zone warms all.
type ReportWarmupPayload struct {
	ZoneID string `json:"zone_id,omitempty"`
}

// CacheBumpPayload records why the cache was invalidated.
type CacheBumpPayload struct {
	Reason string `json:"reason"`
}

// NewReportWarmupTask builds a warmup task, optionally for a single zone.
func NewReportWarmupTask(zoneID *uuid.UUID) (*asynq.Task, error) {
	var payload ReportWarmupPayload
	if zoneID != nil {
		payload.ZoneID = zoneID.String()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsReportWarmup, data), nil
}

// NewCacheBumpTask builds a cache invalidation task.
func NewCacheBumpTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(CacheBumpPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsCacheBump, data), nil
}
