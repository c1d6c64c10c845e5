package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gochat/internal/metrics"
)

// newRegistry exposes the collector's counters to Prometheus.  Values
// are read at scrape time, so the collector stays the only store.
func newRegistry(m *metrics.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gauge := func(name, help string, fn func() int64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "gochat", Name: name, Help: help,
		}, func() float64 { return float64(fn()) })
	}
	counter := func(name, help string, fn func() int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "gochat", Name: name, Help: help,
		}, func() float64 { return float64(fn()) })
	}

	reg.MustRegister(
		gauge("connections_active", "Open chat connections.", m.ActiveConnections),
		gauge("named_users", "Connections that have set a username.", m.NamedUsers),
		counter("connections_total", "Connections accepted since start.", m.TotalConnections),
		counter("connections_rejected_total", "Connections turned away at the limit.", m.RejectedConnections),
		counter("bytes_received_total", "Bytes read from clients.", m.TotalBytesIn),
		counter("bytes_sent_total", "Bytes written to clients.", m.TotalBytesOut),
		counter("frames_received_total", "Frames read from clients.", m.TotalFramesIn),
		counter("frames_sent_total", "Frames written to clients.", m.TotalFramesOut),
		counter("protocol_violations_total", "Corrective notices sent.", m.Violations),
		counter("errors_total", "Transport errors.", m.ErrorCount),
	)
	return reg
}
