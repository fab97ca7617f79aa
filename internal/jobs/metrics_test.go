package jobmetrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	const job = "analytics:report_warmup"

	assert.NoError(t, m.Track(job).End(nil))
	boom := errors.New("db down")
	assert.Same(t, boom, m.Track(job).End(boom))
	skip := fmt.Errorf("decode: %w", asynq.SkipRetry)
	assert.ErrorIs(t, m.Track(job).End(skip), asynq.SkipRetry)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, StatusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, StatusSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(job)))
	assert.Positive(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues(job)))
}

func TestAnomaliesPerZone(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddObjectiveAnomalies("", 2)
	m.AddObjectiveAnomalies("norte", 0)
	m.AddObjectiveAnomalies("norte", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.anomalies.WithLabelValues("all")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.anomalies.WithLabelValues("norte")))

	var nilMetrics *Metrics
	nilMetrics.AddObjectiveAnomalies("sur", 1)
	assert.NoError(t, nilMetrics.Track("x").End(nil))
}
