// Package metrics exposes Prometheus instrumentation for ctfmanager,
// grounded on the teacher's pkg/metrics: package-level vectors registered at
// init, a Handler for wiring into an HTTP mux, and a Timer helper for
// histogram observations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctfmanager_rpc_requests_total",
			Help: "Total number of gRPC facade requests by method and status",
		},
		[]string{"method", "status"},
	)

	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctfmanager_rpc_request_duration_seconds",
			Help:    "gRPC facade request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	TranslationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctfmanager_translation_rejections_total",
			Help: "Total number of compose documents rejected by the translator, by reason",
		},
		[]string{"reason"},
	)

	ChallengeLoadFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctfmanager_challenge_load_failures_total",
			Help: "Total number of challenges dropped during repository load, by challenge id",
		},
		[]string{"challenge_id"},
	)

	ChallengesLoadedTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ctfmanager_challenges_loaded",
			Help: "Number of challenges currently loaded from the synced repository",
		},
	)

	InstanceLifecycleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctfmanager_instance_lifecycle_total",
			Help: "Total number of instance lifecycle transitions by transition and result",
		},
		[]string{"transition", "result"},
	)

	ActiveInstances = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ctfmanager_active_instances",
			Help: "Number of currently active challenge instances",
		},
	)

	GitSyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ctfmanager_git_sync_duration_seconds",
			Help:    "Time taken to sync the challenge repository in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	GitSyncFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ctfmanager_git_sync_failures_total",
			Help: "Total number of failed repository sync attempts",
		},
	)

	SSHSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctfmanager_ssh_sessions_total",
			Help: "Total number of SSH gateway sessions by kind and result",
		},
		[]string{"kind", "result"},
	)

	SSHSessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ctfmanager_ssh_session_duration_seconds",
			Help:    "SSH gateway session duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	SSHBackendsRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ctfmanager_ssh_backends_registered",
			Help: "Number of backends currently registered with the SSH gateway",
		},
	)

	ScriptEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctfmanager_script_evaluations_total",
			Help: "Total number of sandboxed script evaluations by kind and result",
		},
		[]string{"kind", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		RPCRequestsTotal,
		RPCRequestDuration,
		TranslationRejectionsTotal,
		ChallengeLoadFailuresTotal,
		ChallengesLoadedTotal,
		InstanceLifecycleTotal,
		ActiveInstances,
		GitSyncDuration,
		GitSyncFailuresTotal,
		SSHSessionsTotal,
		SSHSessionDuration,
		SSHBackendsRegistered,
		ScriptEvaluationsTotal,
	)
}

// Handler returns the Prometheus HTTP handler for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an in-flight operation for histogram observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labelled histogram vector.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
