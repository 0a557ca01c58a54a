package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/justuche224/swift/internal/domain"
	"github.com/shopspring/decimal"
)

type GiftCatalog interface {
	ListActive(ctx context.Context, page, limit int) (*domain.GiftPage, error)
	GetActive(ctx context.Context, id string) (*domain.Gift, error)
	AdminList(ctx context.Context, page, limit int, query string) (*domain.GiftPage, error)
	AdminGet(ctx context.Context, id string) (*domain.Gift, error)
	Create(ctx context.Context, g domain.Gift) (*domain.Gift, error)
	Update(ctx context.Context, id string, g domain.Gift) (*domain.Gift, error)
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) (*domain.Gift, error)
}

type GiftHandler struct {
	gifts   GiftCatalog
	timeout time.Duration
	maxBody int64
}

func NewGiftHandler(gifts GiftCatalog, timeout time.Duration, maxBody int64) *GiftHandler {
	return &GiftHandler{gifts: gifts, timeout: timeout, maxBody: maxBody}
}

type GiftRequestDTO struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURLs   []string        `json:"image_urls"`
	Sizes       []string        `json:"sizes"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"is_active"`
}

func (d GiftRequestDTO) toDomain() domain.Gift {
	return domain.Gift{
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		ImageURLs:   d.ImageURLs,
		Sizes:       d.Sizes,
		Stock:       d.Stock,
		IsActive:    d.IsActive,
	}
}

type SetActiveRequestDTO struct {
	IsActive bool `json:"is_active"`
}

type GiftListResponseDTO struct {
	Gifts      []GiftResponseDTO `json:"gifts"`
	Pagination domain.Pagination `json:"pagination"`
}

// GET /api/v1/gifts?page=&limit=
func (h *GiftHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.gifts.ListActive(ctx, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, GiftListResponseDTO{Gifts: convertGifts(page.Gifts), Pagination: page.Pagination})
}

// GET /api/v1/gifts/{gift_id}
func (h *GiftHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	g, err := h.gifts.GetActive(ctx, chi.URLParam(r, "gift_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertGift(g))
}

// GET /api/v1/admin/gifts?page=&limit=&q=
func (h *GiftHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.gifts.AdminList(ctx, queryInt(r, "page"), queryInt(r, "limit"), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, GiftListResponseDTO{Gifts: convertGifts(page.Gifts), Pagination: page.Pagination})
}

// GET /api/v1/admin/gifts/{gift_id}
func (h *GiftHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	g, err := h.gifts.AdminGet(ctx, chi.URLParam(r, "gift_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertGift(g))
}

// POST /api/v1/admin/gifts
func (h *GiftHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req GiftRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	g, err := h.gifts.Create(ctx, req.toDomain())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertGift(g))
}

// PUT /api/v1/admin/gifts/{gift_id}
func (h *GiftHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req GiftRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	g, err := h.gifts.Update(ctx, chi.URLParam(r, "gift_id"), req.toDomain())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertGift(g))
}

// PATCH /api/v1/admin/gifts/{gift_id}/active
func (h *GiftHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetActiveRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}
	g, err := h.gifts.SetActive(ctx, chi.URLParam(r, "gift_id"), req.IsActive)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertGift(g))
}

// DELETE /api/v1/admin/gifts/{gift_id}
func (h *GiftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.gifts.Delete(ctx, chi.URLParam(r, "gift_id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
