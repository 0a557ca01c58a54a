package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/justuche224/swift/internal/cart"
	"github.com/justuche224/swift/internal/domain"
)

type GiftLookup interface {
	GetActive(ctx context.Context, id string) (*domain.Gift, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, lines []domain.CartLine, recipient domain.Recipient) (*domain.Order, error)
}

// CartService runs cart mutations for one owner at a time and turns a cart
// into an order at checkout.
type CartService struct {
	storage cart.Storage
	gifts   GiftLookup
	orders  OrderCreator
	log     *slog.Logger
}

func NewCartService(storage cart.Storage, gifts GiftLookup, orders OrderCreator, log *slog.Logger) *CartService {
	if log == nil {
		log = slog.Default()
	}
	return &CartService{storage: storage, gifts: gifts, orders: orders, log: log}
}

func (s *CartService) Get(ctx context.Context, owner string) (*cart.Ledger, error) {
	return s.open(ctx, owner)
}

// MaxLineQuantity caps one cart line, including quantities merged by repeated adds.
const MaxLineQuantity = 99

var lineQuantityReason = fmt.Sprintf("at most %d of one item per order", MaxLineQuantity)

// AddItem prices the line from the catalog so clients cannot choose their own price.
func (s *CartService) AddItem(ctx context.Context, owner, productID, variant string, quantity int) (*cart.Ledger, error) {
	variant = strings.TrimSpace(variant)
	if quantity < 1 {
		return nil, invalid("quantity", "must be at least 1")
	}
	if quantity > MaxLineQuantity {
		return nil, invalid("quantity", lineQuantityReason)
	}
	gift, err := s.gifts.GetActive(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !gift.HasSize(variant) {
		if variant == "" {
			return nil, invalid("variant", "a size must be selected")
		}
		return nil, invalid("variant", "size "+variant+" is not offered")
	}

	ledger, err := s.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	if ledger.Quantity(gift.ID, variant)+quantity > MaxLineQuantity {
		return nil, invalid("quantity", lineQuantityReason)
	}
	err = ledger.Add(ctx, domain.CartLine{
		ProductID: gift.ID,
		Variant:   variant,
		Name:      gift.Name,
		UnitPrice: gift.Price,
		Image:     gift.PrimaryImage(),
		Quantity:  quantity,
	})
	if err != nil {
		return nil, mapCartErr("add cart item", err)
	}
	return ledger, nil
}

// UpdateQuantity sets the quantity of a line; zero removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, owner, productID, variant string, quantity int) (*cart.Ledger, error) {
	if quantity < 0 {
		return nil, invalid("quantity", "must not be negative")
	}
	if quantity > MaxLineQuantity {
		return nil, invalid("quantity", lineQuantityReason)
	}
	ledger, err := s.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	if quantity == 0 {
		err = ledger.Remove(ctx, productID, strings.TrimSpace(variant))
	} else {
		err = ledger.SetQuantity(ctx, productID, quantity, strings.TrimSpace(variant))
	}
	if err != nil {
		return nil, mapCartErr("update cart item", err)
	}
	return ledger, nil
}

func (s *CartService) RemoveItem(ctx context.Context, owner, productID, variant string) (*cart.Ledger, error) {
	ledger, err := s.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := ledger.Remove(ctx, productID, strings.TrimSpace(variant)); err != nil {
		return nil, mapCartErr("remove cart item", err)
	}
	return ledger, nil
}

func (s *CartService) Clear(ctx context.Context, owner string) error {
	ledger, err := s.open(ctx, owner)
	if err != nil {
		return err
	}
	return mapCartErr("clear cart", ledger.Clear(ctx))
}

// Checkout places an order for the owner's cart and empties the cart once
// the order is stored. A failure to empty the cart does not fail the order.
func (s *CartService) Checkout(ctx context.Context, owner string, recipient domain.Recipient) (*domain.Order, error) {
	ledger, err := s.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	if ledger.IsEmpty() {
		return nil, invalid("items", "cart is empty")
	}

	order, err := s.orders.CreateOrder(ctx, ledger.Lines(), recipient)
	if err != nil {
		return nil, err
	}

	if err := ledger.Clear(ctx); err != nil {
		s.log.ErrorContext(ctx, "failed to clear cart after checkout", "owner", owner, "order_id", order.ID, "error", err)
	}
	return order, nil
}

func (s *CartService) open(ctx context.Context, owner string) (*cart.Ledger, error) {
	ledger, err := cart.Open(ctx, s.storage, owner)
	if err != nil {
		return nil, mapCartErr("load cart", err)
	}
	return ledger, nil
}

func mapCartErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cart.ErrInvalidQuantity):
		return invalid("quantity", "must be at least 1")
	case errors.Is(err, cart.ErrNegativeQuantity):
		return invalid("quantity", "must not be negative")
	case errors.Is(err, cart.ErrMissingProduct):
		return invalid("product_id", "is required")
	case errors.Is(err, cart.ErrMissingOwner):
		return invalid("owner", "cart owner is required")
	default:
		return &PersistenceError{Op: op, Err: err}
	}
}
