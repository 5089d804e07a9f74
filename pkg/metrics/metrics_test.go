package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimerStartsNearNow(t *testing.T) {
	timer := NewTimer()
	require.NotNil(t, timer)
	assert.Less(t, timer.Duration(), time.Second)
}

func TestTimerObserveDurationRecordsToHistogram(t *testing.T) {
	timer := NewTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDuration(PipelineWriteDuration)
	assert.Greater(t, timer.Duration(), time.Duration(0))
}

func TestTimerObserveDurationRecordsToHistogramVecLabel(t *testing.T) {
	timer := NewTimer()
	time.Sleep(time.Millisecond)
	timer.ObserveDuration(ScenarioWallDuration.WithLabelValues("default-write"))

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), "hdfsim_scenario_wall_duration_seconds")
	assert.Contains(t, rec.Body.String(), `scenario="default-write"`)
}

func TestHandlerServesMetrics(t *testing.T) {
	VirtualClock.Set(42)
	FilesRegistered.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "hdfsim_virtual_clock_seconds")
	assert.Contains(t, rec.Body.String(), "hdfsim_files_registered_total")
}

func TestGaugeVecsAcceptPerNodeLabels(t *testing.T) {
	ActiveDiskWriters.WithLabelValues("datanode-1").Set(3)
	DiskUtilization.WithLabelValues("datanode-1").Set(0.75)
	NICUtilization.WithLabelValues("datanode-1").Set(0.5)
	InterruptsDelivered.WithLabelValues("needs disk").Inc()
	PipelineWritesCompleted.WithLabelValues("success").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, `node="datanode-1"`)
	assert.Contains(t, body, `reason="needs disk"`)
	assert.Contains(t, body, `outcome="success"`)
}
