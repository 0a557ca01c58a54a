package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/justuche224/swift/internal/arrival"
	"github.com/justuche224/swift/internal/domain"
	"github.com/justuche224/swift/pkg/logger"
)

type OrderTracker interface {
	GetByTrackingCode(ctx context.Context, code string) (*domain.Order, bool, error)
}

type TrackHandler struct {
	orders  OrderTracker
	timeout time.Duration
	now     func() time.Time
}

func NewTrackHandler(orders OrderTracker, timeout time.Duration) *TrackHandler {
	return &TrackHandler{orders: orders, timeout: timeout, now: time.Now}
}

type TrackResponseDTO struct {
	OrderResponseDTO
	TimeRemaining string `json:"time_remaining"`
}

// GET /api/v1/track/{code}
func (h *TrackHandler) Track(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, found, err := h.orders.GetByTrackingCode(ctx, chi.URLParam(r, "code"))
	if err != nil {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "tracking lookup failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "unavailable", "tracking temporarily unavailable")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "order_not_found", "no order matches this tracking code")
		return
	}

	remaining := arrival.Remaining(order.EstimatedArrival, h.now())
	if order.Status == domain.OrderStatusDelivered {
		remaining = arrival.Delivered
	}
	respondJSON(w, http.StatusOK, TrackResponseDTO{
		OrderResponseDTO: convertOrder(order),
		TimeRemaining:    remaining,
	})
}
