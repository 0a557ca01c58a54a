package repository

import (
	"context"
	"errors"

	"github.com/justuche224/swift/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateTrackingCode means the insert collided on a unique key. The
	// caller may retry with freshly generated identifiers.
	ErrDuplicateTrackingCode = errors.New("tracking code already exists")
)

type Credentials struct {
	Driver   string // "postgres" (lib/pq) or "pgx"
	URL      string // overrides the discrete fields when set
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type OrderRepository interface {
	// CreateOrder inserts the order, its items and the initial history row in
	// one transaction.
	CreateOrder(ctx context.Context, order *domain.Order, initial domain.StatusChange) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByTrackingCode(ctx context.Context, code string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error)
	// UpdateStatus sets the status and appends change, filling in its From
	// field with the status being replaced. It returns the updated order.
	UpdateStatus(ctx context.Context, id string, change domain.StatusChange) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error)
	RunMigrations() error
	Close() error
}
