// Package cart holds the per-client cart ledger and its storage backends.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/justuche224/swift/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrNegativeQuantity = errors.New("quantity must not be negative")
	ErrMissingProduct   = errors.New("product id is required")
)

// Ledger is one client's cart. Lines are kept in insertion order and every
// mutation is written through to Storage before it becomes visible. A Ledger
// is not safe for concurrent use; open one per request.
type Ledger struct {
	owner string
	store Storage
	lines []domain.CartLine
}

func Open(ctx context.Context, store Storage, owner string) (*Ledger, error) {
	if owner == "" {
		return nil, ErrMissingOwner
	}
	lines, err := store.Get(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return &Ledger{owner: owner, store: store, lines: lines}, nil
}

func (l *Ledger) Owner() string { return l.owner }

// Add merges line into an existing line with the same product and variant,
// or appends it.
func (l *Ledger) Add(ctx context.Context, line domain.CartLine) error {
	if line.ProductID == "" {
		return ErrMissingProduct
	}
	if line.Quantity < 1 {
		return ErrInvalidQuantity
	}

	next := l.Lines()
	if i := indexOf(next, line.Key()); i >= 0 {
		next[i].Quantity += line.Quantity
	} else {
		next = append(next, line)
	}
	return l.commit(ctx, next)
}

// Remove drops the line for the key. Removing an absent line is a no-op.
func (l *Ledger) Remove(ctx context.Context, productID, variant string) error {
	i := indexOf(l.lines, domain.LineKey{ProductID: productID, Variant: variant})
	if i < 0 {
		return nil
	}
	next := make([]domain.CartLine, 0, len(l.lines)-1)
	next = append(next, l.lines[:i]...)
	next = append(next, l.lines[i+1:]...)
	return l.commit(ctx, next)
}

// SetQuantity replaces the quantity in place. A zero quantity is stored as
// is; callers that mean "remove" must call Remove.
func (l *Ledger) SetQuantity(ctx context.Context, productID string, quantity int, variant string) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	i := indexOf(l.lines, domain.LineKey{ProductID: productID, Variant: variant})
	if i < 0 {
		return nil
	}
	next := l.Lines()
	next[i].Quantity = quantity
	return l.commit(ctx, next)
}

func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.store.Clear(ctx, l.owner); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	l.lines = nil
	return nil
}

// Lines returns a copy of the current lines.
func (l *Ledger) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(l.lines))
	copy(out, l.lines)
	return out
}

// Quantity reports how many of the keyed line are in the cart, zero if absent.
func (l *Ledger) Quantity(productID, variant string) int {
	if i := indexOf(l.lines, domain.LineKey{ProductID: productID, Variant: variant}); i >= 0 {
		return l.lines[i].Quantity
	}
	return 0
}

func (l *Ledger) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func (l *Ledger) TotalItems() int {
	n := 0
	for _, line := range l.lines {
		n += line.Quantity
	}
	return n
}

func (l *Ledger) IsEmpty() bool { return len(l.lines) == 0 }

func (l *Ledger) commit(ctx context.Context, next []domain.CartLine) error {
	if err := l.store.Set(ctx, l.owner, next); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	l.lines = next
	return nil
}

func indexOf(lines []domain.CartLine, key domain.LineKey) int {
	for i, line := range lines {
		if line.Key() == key {
			return i
		}
	}
	return -1
}
