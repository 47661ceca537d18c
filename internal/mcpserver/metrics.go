package mcpserver

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsSet carries this transport's Prometheus collectors, grounded on
// internal/server/middleware.go's httpRequestsTotal/httpRequestDuration
// pattern. Each Server gets its own registry so repeated test construction
// never panics on prometheus.MustRegister's duplicate-collector guard.
type metricsSet struct {
	registry      *prometheus.Registry
	toolCalls     *prometheus.CounterVec
	toolDurations *prometheus.HistogramVec
	sseSessions   prometheus.Gauge
}

func newMetricsSet() *metricsSet {
	m := &metricsSet{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loxone_mcp_tool_calls_total",
			Help: "Total number of MCP tool invocations, by tool name.",
		}, []string{"tool"}),
		toolDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loxone_mcp_tool_call_duration_seconds",
			Help:    "MCP tool call duration in seconds, by tool name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		sseSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loxone_mcp_sse_sessions_active",
			Help: "Number of currently open SSE sessions.",
		}),
	}
	m.registry.MustRegister(m.toolCalls, m.toolDurations, m.sseSessions)
	return m
}

func (m *metricsSet) toolCalled(name string) {
	m.toolCalls.WithLabelValues(name).Inc()
}

func (m *metricsSet) toolDuration(name string, d time.Duration) {
	m.toolDurations.WithLabelValues(name).Observe(d.Seconds())
}

func (m *metricsSet) sessionOpened() { m.sseSessions.Inc() }
func (m *metricsSet) sessionClosed() { m.sseSessions.Dec() }

func (m *metricsSet) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
