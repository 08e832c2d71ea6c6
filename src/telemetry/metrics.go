package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds every glomers metric. It is served by MetricsHandler.
	Registry = prometheus.NewRegistry()

	// EventsTotal counts the events dispatched to a node, by kind.
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "events_total",
			Help:      "Events dispatched to the node, by kind.",
		},
		[]string{"node", "kind"},
	)

	// MessagesSent counts the messages a node wrote, by body type.
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "messages_sent_total",
			Help:      "Messages written to the output, by body type.",
		},
		[]string{"node", "type"},
	)

	// MessagesReceived counts the messages a node decoded, by body type.
	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "messages_received_total",
			Help:      "Messages decoded from the input, by body type.",
		},
		[]string{"node", "type"},
	)

	// GossipRounds counts the gossip messages a node sent.
	GossipRounds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "gossip_rounds_total",
			Help:      "Gossip messages sent to neighbors.",
		},
		[]string{"node"},
	)

	// GossipSendFailures counts gossip sends that failed and were left to the
	// next round.
	GossipSendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "gossip_send_failures_total",
			Help:      "Gossip sends that failed and will be retried on the next tick.",
		},
		[]string{"node"},
	)

	// StaleAcks counts gossip_ok messages that answered an older round.
	StaleAcks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "gossip_stale_acks_total",
			Help:      "gossip_ok messages that did not match the in-flight round.",
		},
		[]string{"node"},
	)

	// UnknownPeers counts gossip and gossip_ok messages received from nodes
	// that are not neighbors.
	UnknownPeers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "gossip_unknown_peers_total",
			Help:      "Gossip messages received from nodes outside the neighborhood.",
		},
		[]string{"node"},
	)

	// KnownValues is the number of broadcast values a node holds.
	KnownValues = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "known_values",
			Help:      "Number of broadcast values held by the node.",
		},
		[]string{"node"},
	)

	// InFlightRounds is the number of neighbors with an unacknowledged round.
	InFlightRounds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "gossip_in_flight",
			Help:      "Neighbors with an unacknowledged gossip round.",
		},
		[]string{"node"},
	)

	// DroppedLinks counts the messages the simulated network dropped, by
	// reason: loss, overflow or orphan.
	DroppedLinks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "simulated_drops_total",
			Help:      "Messages dropped by the simulated network.",
		},
		[]string{"reason"},
	)

	// RequestsTotal counts HTTP requests to the metrics service, by handler
	// and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests to the metrics service.",
		},
		[]string{"op", "status"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version and git_sha).",
		},
		[]string{"version", "git_sha"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(
		EventsTotal,
		MessagesSent,
		MessagesReceived,
		GossipRounds,
		GossipSendFailures,
		StaleAcks,
		UnknownPeers,
		KnownValues,
		InFlightRounds,
		DroppedLinks,
		RequestsTotal,
		buildInfo,
		uptime,
	)
}

// MetricsHandler exposes /metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup.
func SetBuildInfo(version, gitSHA string) {
	buildInfo.WithLabelValues(version, gitSHA).Set(1)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument wraps an http.Handler to count requests under the provided "op"
// label.
func Instrument(op string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}

		next.ServeHTTP(sw, r)

		class := strconv.Itoa(sw.status/100) + "xx"
		RequestsTotal.WithLabelValues(op, class).Inc()
	})
}
