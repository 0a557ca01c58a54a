package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/justuche224/swift/internal/cart"
	"github.com/justuche224/swift/internal/domain"
	"github.com/justuche224/swift/internal/service"
	"github.com/justuche224/swift/pkg/logger"
)

type CartService interface {
	Get(ctx context.Context, owner string) (*cart.Ledger, error)
	AddItem(ctx context.Context, owner, productID, variant string, quantity int) (*cart.Ledger, error)
	UpdateQuantity(ctx context.Context, owner, productID, variant string, quantity int) (*cart.Ledger, error)
	RemoveItem(ctx context.Context, owner, productID, variant string) (*cart.Ledger, error)
	Clear(ctx context.Context, owner string) error
	Checkout(ctx context.Context, owner string, recipient domain.Recipient) (*domain.Order, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
	maxBody int64
}

func NewCartHandler(carts CartService, timeout time.Duration, maxBody int64) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		maxBody: maxBody,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Variant   string `json:"variant"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequestDTO struct {
	Recipient domain.Recipient `json:"recipient"`
}

type CheckoutResponseDTO struct {
	Success          bool       `json:"success"`
	OrderID          string     `json:"order_id,omitempty"`
	TrackingCode     string     `json:"tracking_code,omitempty"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ledger, err := h.carts.Get(ctx, ownerFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(ledger))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > service.MaxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	ledger, err := h.carts.AddItem(ctx, ownerFromContext(r.Context()), req.ProductID, req.Variant, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertCart(ledger))
}

// PUT /api/v1/cart/items/{product_id}?variant=
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	if req.Quantity < 0 || req.Quantity > service.MaxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	ledger, err := h.carts.UpdateQuantity(ctx, ownerFromContext(r.Context()),
		chi.URLParam(r, "product_id"), r.URL.Query().Get("variant"), req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(ledger))
}

// DELETE /api/v1/cart/items/{product_id}?variant=
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ledger, err := h.carts.RemoveItem(ctx, ownerFromContext(r.Context()),
		chi.URLParam(r, "product_id"), r.URL.Query().Get("variant"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCart(ledger))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.Clear(ctx, ownerFromContext(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	order, err := h.carts.Checkout(ctx, ownerFromContext(r.Context()), req.Recipient)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			respondJSON(w, http.StatusBadRequest, CheckoutResponseDTO{Error: ve.Error()})
			return
		}
		status := http.StatusInternalServerError
		var pe *service.PersistenceError
		if errors.As(err, &pe) && pe.Retryable {
			status = http.StatusServiceUnavailable
		}
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "checkout failed", "error", err)
		respondJSON(w, status, CheckoutResponseDTO{Error: "Failed to create order"})
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		Success:          true,
		OrderID:          order.ID,
		TrackingCode:     order.TrackingCode,
		EstimatedArrival: &order.EstimatedArrival,
	})
}
