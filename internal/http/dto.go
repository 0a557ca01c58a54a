package http

import (
	"time"

	"github.com/justuche224/swift/internal/cart"
	"github.com/justuche224/swift/internal/domain"
)

type CartLineDTO struct {
	ProductID string `json:"product_id"`
	Variant   string `json:"variant,omitempty"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type CartResponseDTO struct {
	Items      []CartLineDTO `json:"items"`
	TotalItems int           `json:"total_items"`
	TotalPrice string        `json:"total_price"`
}

func convertCart(l *cart.Ledger) CartResponseDTO {
	lines := l.Lines()
	items := make([]CartLineDTO, 0, len(lines))
	for _, line := range lines {
		items = append(items, CartLineDTO{
			ProductID: line.ProductID,
			Variant:   line.Variant,
			Name:      line.Name,
			Image:     line.Image,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal().StringFixed(2),
		})
	}
	return CartResponseDTO{
		Items:      items,
		TotalItems: l.TotalItems(),
		TotalPrice: l.TotalPrice().StringFixed(2),
	}
}

type OrderItemDTO struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Variant   string `json:"variant,omitempty"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type OrderResponseDTO struct {
	ID               string           `json:"id"`
	TrackingCode     string           `json:"tracking_code"`
	Recipient        domain.Recipient `json:"recipient"`
	TotalAmount      string           `json:"total_amount"`
	Status           string           `json:"status"`
	EstimatedArrival time.Time        `json:"estimated_arrival"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Items            []OrderItemDTO   `json:"items"`
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Variant:   it.Variant,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal().StringFixed(2),
		})
	}
	return OrderResponseDTO{
		ID:               o.ID,
		TrackingCode:     o.TrackingCode,
		Recipient:        o.Recipient,
		TotalAmount:      o.TotalAmount.StringFixed(2),
		Status:           string(o.Status),
		EstimatedArrival: o.EstimatedArrival,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Items:            items,
	}
}

func convertOrders(orders []domain.Order) []OrderResponseDTO {
	out := make([]OrderResponseDTO, 0, len(orders))
	for i := range orders {
		out = append(out, convertOrder(&orders[i]))
	}
	return out
}

type GiftResponseDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       string    `json:"price"`
	Category    string    `json:"category,omitempty"`
	ImageURLs   []string  `json:"image_urls"`
	Sizes       []string  `json:"sizes"`
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func convertGift(g *domain.Gift) GiftResponseDTO {
	return GiftResponseDTO{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Price:       g.Price.StringFixed(2),
		Category:    g.Category,
		ImageURLs:   nonNil(g.ImageURLs),
		Sizes:       nonNil(g.Sizes),
		Stock:       g.Stock,
		IsActive:    g.IsActive,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func convertGifts(gifts []domain.Gift) []GiftResponseDTO {
	out := make([]GiftResponseDTO, 0, len(gifts))
	for i := range gifts {
		out = append(out, convertGift(&gifts[i]))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
