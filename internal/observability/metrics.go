package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	storeWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_store_writes_total",
			Help: "Total number of store writes by operation.",
		},
		[]string{"op"},
	)
	storeWriteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_store_write_errors_total",
			Help: "Total number of failed store writes by operation.",
		},
		[]string{"op"},
	)
	snapshotsDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_snapshots_delivered_total",
			Help: "Total number of full channel snapshots delivered to subscribers.",
		},
		[]string{"channel"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		storeWritesTotal,
		storeWriteErrorsTotal,
		snapshotsDeliveredTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncStoreWrite(op string) {
	storeWritesTotal.WithLabelValues(op).Inc()
}

func IncStoreWriteError(op string) {
	storeWriteErrorsTotal.WithLabelValues(op).Inc()
}

func IncSnapshotDelivered(channelID string) {
	snapshotsDeliveredTotal.WithLabelValues(channelID).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
