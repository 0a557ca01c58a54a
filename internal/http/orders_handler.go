package http

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/justuche224/swift/internal/domain"
	"github.com/justuche224/swift/internal/export"
	"github.com/justuche224/swift/pkg/logger"
)

type OrderAdmin interface {
	ListOrders(ctx context.Context, page, pageSize int, query string) (*domain.OrderPage, error)
	ExportOrders(ctx context.Context, query string) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	SetStatus(ctx context.Context, id, status string) (*domain.Order, error)
	StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error)
	DeleteOrder(ctx context.Context, id string) error
}

type OrdersHandler struct {
	orders  OrderAdmin
	timeout time.Duration
	maxBody int64
	now     func() time.Time
}

func NewOrdersHandler(orders OrderAdmin, timeout time.Duration, maxBody int64) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
		maxBody: maxBody,
		now:     time.Now,
	}
}

type OrderListResponseDTO struct {
	Orders     []OrderResponseDTO `json:"orders"`
	Pagination domain.Pagination  `json:"pagination"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

// GET /api/v1/admin/orders?page=&page_size=&q=
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.orders.ListOrders(ctx, queryInt(r, "page"), queryInt(r, "page_size"), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, OrderListResponseDTO{
		Orders:     convertOrders(page.Orders),
		Pagination: page.Pagination,
	})
}

// GET /api/v1/admin/orders/export?q=
func (h *OrdersHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ExportOrders(ctx, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteOrdersXLSX(&buf, orders); err != nil {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "export orders", "error", err)
		respondError(w, http.StatusInternalServerError, "export_failed", "failed to write Excel file")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(h.now()))
	w.Header().Set("Content-Type", export.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GET /api/v1/admin/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order))
}

// PATCH /api/v1/admin/orders/{order_id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	order, err := h.orders.SetStatus(ctx, chi.URLParam(r, "order_id"), req.Status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order))
}

// GET /api/v1/admin/orders/{order_id}/history
func (h *OrdersHandler) StatusHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	history, err := h.orders.StatusHistory(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// DELETE /api/v1/admin/orders/{order_id}
func (h *OrdersHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.orders.DeleteOrder(ctx, chi.URLParam(r, "order_id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
