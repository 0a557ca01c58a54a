// Package catalog stores gifts through GORM on the shared Postgres pool.
package catalog

import (
	"context"
	"errors"

	"github.com/justuche224/swift/internal/domain"
)

var ErrGiftNotFound = errors.New("gift not found")

type ListFilter struct {
	Page       int
	PageSize   int
	ActiveOnly bool
	Query      string
}

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]domain.Gift, int64, error)
	Get(ctx context.Context, id string) (*domain.Gift, error)
	Create(ctx context.Context, g *domain.Gift) error
	Update(ctx context.Context, g *domain.Gift) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) (*domain.Gift, error)
}
