package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Gift struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURLs   []string        `json:"image_urls"`
	Sizes       []string        `json:"sizes"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HasSize reports whether size is offered. A gift without sizes only accepts "".
func (g Gift) HasSize(size string) bool {
	if size == "" {
		return len(g.Sizes) == 0
	}
	for _, s := range g.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

func (g Gift) PrimaryImage() string {
	if len(g.ImageURLs) == 0 {
		return ""
	}
	return g.ImageURLs[0]
}
