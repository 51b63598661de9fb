// Package metrics exposes the engine's internal Prometheus counters.
//
// This is structural telemetry the transport engine emits as it runs
// (packets sent/received, retransmits, timeouts, RTT, window occupancy) —
// distinct from the CLI's human-readable transfer summary, which is
// computed separately from the byte counters a completed Run returns.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PacketsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drtp",
		Name:      "packets_sent_total",
		Help:      "Packets transmitted by the engine, by role and type.",
	}, []string{"role", "strategy", "type"})

	PacketsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drtp",
		Name:      "packets_received_total",
		Help:      "Packets received by the engine, by role and type.",
	}, []string{"role", "strategy", "type"})

	Retransmits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drtp",
		Name:      "retransmits_total",
		Help:      "Chunks retransmitted, by strategy.",
	}, []string{"strategy"})

	Timeouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "drtp",
		Name:      "timeouts_total",
		Help:      "Socket receive deadlines elapsed, by strategy.",
	}, []string{"strategy"})

	RTT = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "drtp",
		Name:      "handshake_rtt_seconds",
		Help:      "Round-trip time measured during the handshake.",
		Buckets:   prometheus.DefBuckets,
	})

	WindowOccupancy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "drtp",
		Name:      "window_occupancy",
		Help:      "In-flight unacknowledged chunks, by strategy.",
	}, []string{"strategy"})
)

// Registry is a dedicated registry rather than the global default so that
// embedding DRTP's engine in another program never collides with that
// program's own metric names.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(PacketsSent, PacketsReceived, Retransmits, Timeouts, RTT, WindowOccupancy)
}
