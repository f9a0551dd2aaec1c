package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	wsConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total number of WebSocket connections",
		},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	messagesRelayedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_messages_relayed_total",
			Help: "Total number of chat messages relayed",
		},
	)

	callsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_calls_initiated_total",
			Help: "Total number of calls initiated",
		},
		[]string{"type"},
	)

	signalsRelayedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_signals_relayed_total",
			Help: "Total number of signaling payloads relayed",
		},
		[]string{"kind"},
	)
)

// Metrics returns a Gin middleware that collects Prometheus metrics.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns the Prometheus metrics handler for Gin.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordWebSocketConnection increments WebSocket connection counters.
func RecordWebSocketConnection() {
	wsConnectionsTotal.Inc()
	wsActiveConnections.Inc()
}

// RecordWebSocketDisconnection decrements the active connection gauge.
func RecordWebSocketDisconnection() {
	wsActiveConnections.Dec()
}

// RecordMessageRelayed increments the relayed message counter.
func RecordMessageRelayed() {
	messagesRelayedTotal.Inc()
}

// RecordCallInitiated increments the initiated call counter by call type.
func RecordCallInitiated(callType string) {
	callsInitiatedTotal.WithLabelValues(callType).Inc()
}

// RecordSignalRelayed increments the signaling relay counter by frame kind.
func RecordSignalRelayed(kind string) {
	signalsRelayedTotal.WithLabelValues(kind).Inc()
}
