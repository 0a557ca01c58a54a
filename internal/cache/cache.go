package cache

import (
	"context"
	"errors"

	"github.com/justuche224/swift/internal/domain"
)

// OrderCache holds public tracking views keyed by tracking code.
//
// Every code carries a generation that Delete advances. A reader takes the
// generation with Version before loading the order from the store and hands
// it back to Set, which refuses the write if the code was invalidated in
// between.
type OrderCache interface {
	Get(ctx context.Context, trackingCode string) (*domain.Order, error)
	Version(ctx context.Context, trackingCode string) (int64, error)
	Set(ctx context.Context, order *domain.Order, version int64) error
	Delete(ctx context.Context, trackingCode string) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrStale     = errors.New("cache entry invalidated since read")
)
