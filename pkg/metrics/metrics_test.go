package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics("test", reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/track/{code}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/track/SWIFT-A-B", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/track/SWIFT-C-D", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/track/{code}", "404")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *ServerMetrics
	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.TrackingConflict()
		m.StatusChanged("pending")
	})
}

func TestHandler_ExposesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics("test", reg)
	m.OrderCreated()
	m.StatusChanged("delivered")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "swift_test_orders_created_total 1"))
	assert.True(t, strings.Contains(body, `swift_test_order_status_changes_total{status="delivered"} 1`))
}
