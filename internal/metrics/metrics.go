package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gigtalk_ws_sessions",
		Help: "Current number of active websocket sessions",
	})
	MessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gigtalk_messages_total",
		Help: "Total number of messages persisted",
	})
	NotificationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gigtalk_notifications_total",
		Help: "Total number of live message notifications emitted",
	})
	DeliveryFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gigtalk_delivery_failures_total",
		Help: "Total number of best-effort delivery failures after persistence",
	})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gigtalk_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gigtalk_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsSessions,
		MessagesTotal,
		NotificationsTotal,
		DeliveryFailuresTotal,
		HttpRequestsTotal,
		HttpRequestDuration,
	)
}

// Middleware records request counts and latencies for Prometheus.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// RoutePattern keeps label cardinality bounded; the raw path is
		// only used for requests that never matched a route.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		labels := prometheus.Labels{
			"method": r.Method,
			"path":   path,
			"status": strconv.Itoa(ww.Status()),
		}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}
