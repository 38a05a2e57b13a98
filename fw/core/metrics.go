package core

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported by the forwarder.
var Registry = prometheus.NewRegistry()

// Metrics are the strategy counters. Labels use the thread tag as "router".
var Metrics = struct {
	NacksReceived     *prometheus.CounterVec
	DerivedNacks      *prometheus.CounterVec
	InterestsBuffered *prometheus.CounterVec
	InterestsReleased *prometheus.CounterVec
	InterestsDropped  *prometheus.CounterVec
	RateCycles        *prometheus.CounterVec
	AttackRecords     *prometheus.GaugeVec
	AllowedInterests  *prometheus.GaugeVec
}{
	NacksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ndnd",
		Subsystem: "ddos",
		Name:      "nacks_received_total",
		Help:      "Nacks received by the strategy, by reason.",
	}, []string{"router", "reason"}),
	DerivedNacks: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ndnd",
		Subsystem: "ddos",
		Name:      "derived_nacks_total",
		Help:      "Pushback Nacks sent downstream.",
	}, []string{"router"}),
	InterestsBuffered: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ndnd",
		Subsystem: "ddos",
		Name:      "interests_buffered_total",
		Help:      "Interests held for the next rate limiting cycle.",
	}, []string{"router"}),
	InterestsReleased: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ndnd",
		Subsystem: "ddos",
		Name:      "interests_released_total",
		Help:      "Buffered Interests forwarded within a face quota.",
	}, []string{"router"}),
	InterestsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ndnd",
		Subsystem: "ddos",
		Name:      "interests_dropped_total",
		Help:      "Buffered Interests discarded at the end of a cycle.",
	}, []string{"router"}),
	RateCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ndnd",
		Subsystem: "ddos",
		Name:      "rate_cycles_total",
		Help:      "Rate limiting cycles run.",
	}, []string{"router"}),
	AttackRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ndnd",
		Subsystem: "ddos",
		Name:      "attack_records",
		Help:      "Prefixes with an attack record.",
	}, []string{"router"}),
	AllowedInterests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ndnd",
		Subsystem: "ddos",
		Name:      "allowed_interests",
		Help:      "Current per-cycle quota of a face under an attacked prefix.",
	}, []string{"router", "prefix", "face"}),
}

func init() {
	Registry.MustRegister(
		Metrics.NacksReceived,
		Metrics.DerivedNacks,
		Metrics.InterestsBuffered,
		Metrics.InterestsReleased,
		Metrics.InterestsDropped,
		Metrics.RateCycles,
		Metrics.AttackRecords,
		Metrics.AllowedInterests,
	)
}

// MetricsServer serves the registry over HTTP.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
}

// StartMetricsServer listens on bind and serves /metrics in the background.
func StartMetricsServer(bind string) (*MetricsServer, error) {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("unable to listen for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
	m := &MetricsServer{
		server:   &http.Server{Handler: mux},
		listener: listener,
	}

	go func() {
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Log.Error(m, "Metrics server stopped", "err", err)
		}
	}()
	Log.Info(m, "Serving metrics", "addr", listener.Addr())
	return m, nil
}

func (m *MetricsServer) String() string {
	return "metrics"
}

// Addr returns the bound address.
func (m *MetricsServer) Addr() net.Addr {
	return m.listener.Addr()
}

// Close stops the server.
func (m *MetricsServer) Close() error {
	return m.server.Close()
}
