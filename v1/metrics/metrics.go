package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireCounter tracks successful acquisitions.
	AcquireCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "softlock_acquire_total",
		Help: "Total number of successful lock acquisitions",
	})
	// AcquireLostCounter tracks acquisitions lost to another contender.
	AcquireLostCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "softlock_acquire_lost_total",
		Help: "Total number of lock acquisitions lost to another contender",
	})
	// StealCounter tracks acquisitions that displaced an expired record.
	StealCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "softlock_steal_total",
		Help: "Total number of expired records displaced during acquisition",
	})
	// ReleaseCounter tracks release attempts.
	ReleaseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "softlock_release_total",
		Help: "Total number of lock releases",
	})
	// VerifyMismatchCounter tracks writes whose read-back did not match.
	VerifyMismatchCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "softlock_verify_mismatch_total",
		Help: "Total number of writes whose read-back did not match",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers softlock core metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AcquireCounter, AcquireLostCounter, StealCounter, ReleaseCounter, VerifyMismatchCounter)
}
