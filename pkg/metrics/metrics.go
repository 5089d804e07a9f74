package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VirtualClock is the simulator's current virtual time, in
	// seconds. This is observability only — it never feeds back into
	// simulated time.
	VirtualClock = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hdfsim_virtual_clock_seconds",
			Help: "Current virtual simulation time, in seconds",
		},
	)

	// SchedulerQueueDepth tracks the scheduler's pending wake-up
	// count.
	SchedulerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hdfsim_scheduler_queue_depth",
			Help: "Number of pending wake-ups in the scheduler's event heap",
		},
	)

	// ActiveDiskWriters counts writers currently contending for a
	// given node's disk.
	ActiveDiskWriters = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hdfsim_active_disk_writers",
			Help: "Number of writers currently active on a node's disk arbiter",
		},
		[]string{"node"},
	)

	// DiskUtilization is the fraction of a node's disk-speed
	// capacity currently granted out to writers.
	DiskUtilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hdfsim_disk_utilization_ratio",
			Help: "Fraction of a node's disk-speed capacity currently granted to writers",
		},
		[]string{"node"},
	)

	// NICUtilization is the fraction of a node's NIC capacity
	// currently claimed by in-flight transfers.
	NICUtilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hdfsim_nic_utilization_ratio",
			Help: "Fraction of a node's NIC capacity currently claimed by transfers",
		},
		[]string{"node"},
	)

	// FilesRegistered counts files the NameNode has registered,
	// cumulatively.
	FilesRegistered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hdfsim_files_registered_total",
			Help: "Total number of files registered in the NameNode",
		},
	)

	// InterruptsDelivered counts scheduler interrupts delivered to
	// processes, by cause.
	InterruptsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hdfsim_interrupts_delivered_total",
			Help: "Total number of interrupts delivered to processes, by cause reason",
		},
		[]string{"reason"},
	)

	// PipelineWritesCompleted counts completed replicated-write
	// pipelines, by outcome.
	PipelineWritesCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hdfsim_pipeline_writes_completed_total",
			Help: "Total number of replicated-write pipelines completed, by outcome",
		},
		[]string{"outcome"},
	)

	// PipelineWriteDuration records the virtual-time duration of a
	// completed replicated-write pipeline.
	PipelineWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hdfsim_pipeline_write_duration_seconds",
			Help:    "Virtual-time duration of a completed replicated-write pipeline",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ScenarioWallDuration records the real (wall-clock) time
	// cmd/hdfsim's report sweep spent driving one named scenario end
	// to end, distinct from the virtual finish time the scenario
	// itself reports.
	ScenarioWallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hdfsim_scenario_wall_duration_seconds",
			Help:    "Wall-clock time spent running one scenario in a report sweep",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scenario"},
	)
)

func init() {
	prometheus.MustRegister(VirtualClock)
	prometheus.MustRegister(SchedulerQueueDepth)
	prometheus.MustRegister(ActiveDiskWriters)
	prometheus.MustRegister(DiskUtilization)
	prometheus.MustRegister(NICUtilization)
	prometheus.MustRegister(FilesRegistered)
	prometheus.MustRegister(InterruptsDelivered)
	prometheus.MustRegister(PipelineWritesCompleted)
	prometheus.MustRegister(PipelineWriteDuration)
	prometheus.MustRegister(ScenarioWallDuration)
}

// Handler returns the Prometheus HTTP handler, served by cmd/hdfsim's
// optional --metrics-addr flag.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing wall-clock durations of driver-level
// operations (e.g. how long a scenario sweep took to run), distinct
// from the virtual time the simulation itself reports.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed wall-clock duration to any
// histogram or histogram-vector observer (e.g. a bare Histogram or
// the result of a HistogramVec's WithLabelValues).
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed wall-clock time since the timer
// started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
