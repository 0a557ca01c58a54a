package service

import (
	"log/slog"
	"time"

	"github.com/justuche224/swift/internal/arrival"
	"github.com/justuche224/swift/internal/cache"
	"github.com/justuche224/swift/internal/ident"
	"github.com/justuche224/swift/pkg/metrics"
)

type OrderOption func(*OrderService)

func WithOrderCache(c cache.OrderCache) OrderOption {
	return func(s *OrderService) { s.cache = c }
}

func WithMetrics(m *metrics.ServerMetrics) OrderOption {
	return func(s *OrderService) { s.metrics = m }
}

func WithLogger(l *slog.Logger) OrderOption {
	return func(s *OrderService) { s.log = l }
}

func WithClock(now func() time.Time) OrderOption {
	return func(s *OrderService) { s.now = now }
}

func WithIdentifiers(orderIDs, itemIDs, trackingCodes ident.Generator) OrderOption {
	return func(s *OrderService) {
		s.orderIDs = orderIDs
		s.itemIDs = itemIDs
		s.trackingCodes = trackingCodes
	}
}

func WithEstimator(e arrival.Estimator) OrderOption {
	return func(s *OrderService) { s.arrival = e }
}

// WithCreateAttempts bounds how many tracking codes are tried per order.
func WithCreateAttempts(n int) OrderOption {
	return func(s *OrderService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithLookupTimeout bounds the shared store fetch behind a tracking lookup.
func WithLookupTimeout(d time.Duration) OrderOption {
	return func(s *OrderService) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}
