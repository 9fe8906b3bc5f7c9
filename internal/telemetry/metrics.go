package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HandshakesSucceeded counts completed 4-Way Handshakes per role (§4.11).
	HandshakesSucceeded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wired",
			Name:      "handshakes_succeeded_total",
			Help:      "Total number of 4-Way Handshakes that completed successfully",
		},
		[]string{"role"},
	)

	// HandshakesFailed counts failed 4-Way Handshakes, labeled by the
	// ConnError reason reported through domain.ConnectCallback.
	HandshakesFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wired",
			Name:      "handshakes_failed_total",
			Help:      "Total number of 4-Way Handshakes that failed",
		},
		[]string{"role", "reason"},
	)

	// StationsActive tracks the number of associated stations per AP
	// interface (§4.11 "active stations"), driven by EventStationAdded/
	// EventStationRemoved.
	StationsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wired",
			Name:      "stations_active",
			Help:      "Number of currently associated stations",
		},
		[]string{"ifindex"},
	)

	// AIDUtilization tracks the fraction of the AID space (1..domain.MaxAID)
	// currently assigned, per AP interface (§4.11 "AID utilization").
	AIDUtilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wired",
			Name:      "aid_utilization_ratio",
			Help:      "Fraction of the AID space currently assigned",
		},
		[]string{"ifindex"},
	)

	// PBCOverlapsTotal counts WSC Push-Button session overlaps detected
	// during registration (§4.11 "PBC overlaps").
	PBCOverlapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wired",
			Name:      "pbc_overlaps_total",
			Help:      "Total number of WSC Push-Button session overlaps detected",
		},
		[]string{"ifindex"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.MustRegister(
			HandshakesSucceeded,
			HandshakesFailed,
			StationsActive,
			AIDUtilization,
			PBCOverlapsTotal,
		)
	})
}
