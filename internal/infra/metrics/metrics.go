package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCAttemptsTotal tracks call attempts per service and operation
	RPCAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_rpc_attempts_total",
			Help: "Total number of remote call attempts",
		},
		[]string{"service", "operation"},
	)

	// RPCFailuresTotal tracks failed attempts by status code and classification
	RPCFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_rpc_failures_total",
			Help: "Total number of failed remote call attempts",
		},
		[]string{"service", "operation", "code", "classification"},
	)

	// RPCGiveUpsTotal tracks call sequences that ended without success
	RPCGiveUpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_rpc_give_ups_total",
			Help: "Total number of call sequences that gave up",
		},
		[]string{"service", "operation", "reason"},
	)

	// RPCBackoffSeconds tracks the waits handed out by the backoff policy
	RPCBackoffSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_rpc_backoff_seconds",
			Help:    "Backoff interval waited before retrying a remote call",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"service", "operation"},
	)

	// ServiceUp reports whether a downstream service connected at startup
	ServiceUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_service_up",
			Help: "Whether the downstream service passed its startup health probe",
		},
		[]string{"service"},
	)
)

// Recorder records call sequence events for one downstream service.
type Recorder struct {
	service string
}

// NewRecorder returns a Recorder labelled with service.
func NewRecorder(service string) *Recorder {
	return &Recorder{service: service}
}

func (r *Recorder) Attempt(operation string) {
	RPCAttemptsTotal.WithLabelValues(r.service, operation).Inc()
}

func (r *Recorder) Failure(operation, code, classification string) {
	RPCFailuresTotal.WithLabelValues(r.service, operation, code, classification).Inc()
}

func (r *Recorder) Backoff(operation string, wait time.Duration) {
	RPCBackoffSeconds.WithLabelValues(r.service, operation).Observe(wait.Seconds())
}

func (r *Recorder) GiveUp(operation, reason string) {
	RPCGiveUpsTotal.WithLabelValues(r.service, operation, reason).Inc()
}

// SetUp flags the service as reachable or not.
func (r *Recorder) SetUp(up bool) {
	v := 0.0
	if up {
		v = 1
	}
	ServiceUp.WithLabelValues(r.service).Set(v)
}
