package cart

import (
	"context"
	"errors"

	"github.com/justuche224/swift/internal/domain"
)

var ErrMissingOwner = errors.New("cart owner is required")

// Storage persists cart lines per client identity. Get returns no lines and
// no error for an unknown owner.
type Storage interface {
	Get(ctx context.Context, owner string) ([]domain.CartLine, error)
	Set(ctx context.Context, owner string, lines []domain.CartLine) error
	Clear(ctx context.Context, owner string) error
}
