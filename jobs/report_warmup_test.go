package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/fieldsales/internal/analytics"
	jobmetrics "github.com/odyssey-erp/fieldsales/internal/jobs"
)

type fakeReports struct {
	periods    []analytics.Period
	dashboards []*uuid.UUID
	warmed     []uuid.UUID
	periodErr  error
	listErr    error
}

func (f *fakeReports) ActivePeriods(ctx context.Context) ([]analytics.Period, error) {
	return f.periods, f.listErr
}

func (f *fakeReports) Dashboard(ctx context.Context, q analytics.ScopeQuery) (analytics.Dashboard, error) {
	f.dashboards = append(f.dashboards, q.ZoneID)
	return analytics.Dashboard{}, nil
}

func (f *fakeReports) PeriodDashboard(ctx context.Context, periodID uuid.UUID, zoneID *uuid.UUID) (analytics.PeriodDashboard, error) {
	if f.periodErr != nil {
		return analytics.PeriodDashboard{}, f.periodErr
	}
	f.warmed = append(f.warmed, periodID)
	return analytics.PeriodDashboard{Anomalies: []analytics.ObjectiveAnomaly{{}}}, nil
}

func newWarmupJob(reports WarmupService) *ReportWarmupJob {
	return NewReportWarmupJob(reports, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestReportWarmupWarmsEveryActivePeriod(t *testing.T) {
	a := analytics.Period{ID: uuid.New(), ZoneID: uuid.New()}
	b := analytics.Period{ID: uuid.New(), ZoneID: uuid.New()}
	reports := &fakeReports{periods: []analytics.Period{a, b}}

	task, err := NewReportWarmupTask(nil)
	require.NoError(t, err)
	require.NoError(t, newWarmupJob(reports).Handle(context.Background(), task))

	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, reports.warmed)
	require.Len(t, reports.dashboards, 3)
	assert.Nil(t, reports.dashboards[0], "global dashboard first")
	assert.Equal(t, a.ZoneID, *reports.dashboards[1])
}

func TestReportWarmupSingleZone(t *testing.T) {
	a := analytics.Period{ID: uuid.New(), ZoneID: uuid.New()}
	b := analytics.Period{ID: uuid.New(), ZoneID: uuid.New()}
	reports := &fakeReports{periods: []analytics.Period{a, b}}

	task, err := NewReportWarmupTask(&b.ZoneID)
	require.NoError(t, err)
	require.NoError(t, newWarmupJob(reports).Handle(context.Background(), task))

	assert.Equal(t, []uuid.UUID{b.ID}, reports.warmed)
	assert.Len(t, reports.dashboards, 1)
}

func TestReportWarmupErrors(t *testing.T) {
	reports := &fakeReports{
		periods:   []analytics.Period{{ID: uuid.New(), ZoneID: uuid.New()}},
		periodErr: errors.New("db down"),
	}
	task, err := NewReportWarmupTask(nil)
	require.NoError(t, err)
	assert.Error(t, newWarmupJob(reports).Handle(context.Background(), task))

	bad := asynq.NewTask(TaskAnalyticsReportWarmup, []byte(`{"zone_id":"nope"}`))
	err = newWarmupJob(&fakeReports{}).Handle(context.Background(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	var nilJob *ReportWarmupJob
	assert.Error(t, nilJob.Handle(context.Background(), task))
}
