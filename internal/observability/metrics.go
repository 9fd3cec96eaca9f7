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
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket events by type.",
		},
		[]string{"event"},
	)
	roomSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_room_subscribers",
			Help: "Number of (room, connection) subscriptions.",
		},
	)
	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_cache_hits_total",
			Help: "Total number of cache hits.",
		},
	)
	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_cache_misses_total",
			Help: "Total number of cache misses.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	notificationsEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_notifications_enqueued_total",
			Help: "Total number of push notification jobs enqueued.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		roomSubscribers,
		cacheHitsTotal,
		cacheMissesTotal,
		amqpPublishErrorsTotal,
		notificationsEnqueuedTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latency per route.
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

func IncWSActive()             { wsActiveConnections.Inc() }
func DecWSActive()             { wsActiveConnections.Dec() }
func IncWSEvent(event string)  { wsEventsTotal.WithLabelValues(event).Inc() }
func IncRoomSubscriber()       { roomSubscribers.Inc() }
func DecRoomSubscriber()       { roomSubscribers.Dec() }
func IncCacheHit()             { cacheHitsTotal.Inc() }
func IncCacheMiss()            { cacheMissesTotal.Inc() }
func IncAMQPPublishError()     { amqpPublishErrorsTotal.Inc() }
func IncNotificationEnqueued() { notificationsEnqueuedTotal.Inc() }
