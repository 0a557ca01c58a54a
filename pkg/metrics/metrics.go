package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests          *prometheus.CounterVec
	LatencyMS         *prometheus.HistogramVec
	OrdersCreated     prometheus.Counter
	TrackingConflicts prometheus.Counter
	StatusChanges     *prometheus.CounterVec
}

func NewServerMetrics(service string, reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swift",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "swift",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "swift",
		Subsystem: service,
		Name:      "orders_created_total",
		Help:      "Orders persisted through checkout.",
	})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "swift",
		Subsystem: service,
		Name:      "tracking_code_conflicts_total",
		Help:      "Order inserts rejected for a duplicate tracking code and retried.",
	})
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swift",
		Subsystem: service,
		Name:      "order_status_changes_total",
		Help:      "Admin status changes by target status.",
	}, []string{"status"})

	reg.MustRegister(requests, latency, created, conflicts, changes)
	return &ServerMetrics{
		Requests:          requests,
		LatencyMS:         latency,
		OrdersCreated:     created,
		TrackingConflicts: conflicts,
		StatusChanges:     changes,
	}
}

// The recording helpers are nil-safe so components can run without metrics.

func (m *ServerMetrics) OrderCreated() {
	if m != nil {
		m.OrdersCreated.Inc()
	}
}

func (m *ServerMetrics) TrackingConflict() {
	if m != nil {
		m.TrackingConflicts.Inc()
	}
}

func (m *ServerMetrics) StatusChanged(status string) {
	if m != nil {
		m.StatusChanges.WithLabelValues(status).Inc()
	}
}

// Middleware records request count and latency labelled by the chi route pattern.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		handler := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			handler = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
