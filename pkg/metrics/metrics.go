package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry metrics
	ContainersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pacwrap_containers_total",
			Help: "Total number of registered containers by type",
		},
		[]string{"type"},
	)

	SchemaVersion = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pacwrap_schema_version",
			Help: "Currently extracted filesystem schema version per container",
		},
		[]string{"container"},
	)

	// Cache metrics
	CacheHitRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pacwrap_cache_hit_ratio",
			Help: "Running ratio of package cache hits to total lookups for the current process",
		},
	)

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pacwrap_cache_hits_total",
			Help: "Total package cache hits during staging",
		},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pacwrap_cache_misses_total",
			Help: "Total package cache misses during staging",
		},
	)

	// Transaction metrics
	ContainersCommittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pacwrap_containers_committed_total",
			Help: "Total containers that reached the complete state after a successful commit",
		},
	)

	ContainersFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pacwrap_containers_failed_total",
			Help: "Total containers whose transaction failed, by container name",
		},
		[]string{"container"},
	)

	ContainersSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pacwrap_containers_skipped_total",
			Help: "Total containers skipped because a dependency failed and --force was not set",
		},
	)

	ContainerCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pacwrap_container_commit_duration_seconds",
			Help:    "Time to drive one container's transaction state machine from prepare to complete",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchemaExtractDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pacwrap_schema_extract_duration_seconds",
			Help:    "Time to extract and verify a filesystem schema archive",
			Buckets: prometheus.DefBuckets,
		},
	)

	LockWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pacwrap_lock_wait_duration_seconds",
			Help:    "Time spent blocked acquiring a container or database lock",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scope"},
	)

	// Sandbox and agent metrics
	SandboxLaunchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pacwrap_sandbox_launches_total",
			Help: "Total bwrap sandbox launches by exit status",
		},
		[]string{"status"},
	)

	AgentRoundtripDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pacwrap_agent_roundtrip_duration_seconds",
			Help:    "Time from writing the agent envelope to reading its final event",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(ContainersTotal)
	prometheus.MustRegister(SchemaVersion)
	prometheus.MustRegister(CacheHitRatio)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ContainersCommittedTotal)
	prometheus.MustRegister(ContainersFailedTotal)
	prometheus.MustRegister(ContainersSkippedTotal)
	prometheus.MustRegister(ContainerCommitDuration)
	prometheus.MustRegister(SchemaExtractDuration)
	prometheus.MustRegister(LockWaitDuration)
	prometheus.MustRegister(SandboxLaunchesTotal)
	prometheus.MustRegister(AgentRoundtripDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
