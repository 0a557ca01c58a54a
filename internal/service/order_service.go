package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/justuche224/swift/internal/arrival"
	"github.com/justuche224/swift/internal/auth"
	"github.com/justuche224/swift/internal/cache"
	"github.com/justuche224/swift/internal/domain"
	"github.com/justuche224/swift/internal/ident"
	"github.com/justuche224/swift/internal/repository"
	"github.com/justuche224/swift/internal/revalidate"
	"github.com/justuche224/swift/pkg/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	defaultCreateAttempts = 3
	defaultLookupTimeout  = 5 * time.Second
	checkoutActor         = "customer"
	exportPageSize        = MaxPageSize
)

type OrderService struct {
	repo     repository.OrderRepository
	authz    auth.Authorizer
	notifier revalidate.Notifier
	cache    cache.OrderCache
	metrics  *metrics.ServerMetrics
	log      *slog.Logger

	orderIDs      ident.Generator
	itemIDs       ident.Generator
	trackingCodes ident.Generator
	arrival       arrival.Estimator
	now           func() time.Time
	maxAttempts   int
	lookupTimeout time.Duration

	sfg singleflight.Group
}

func NewOrderService(repo repository.OrderRepository, authz auth.Authorizer, notifier revalidate.Notifier, opts ...OrderOption) *OrderService {
	s := &OrderService{
		repo:          repo,
		authz:         authz,
		notifier:      notifier,
		log:           slog.Default(),
		orderIDs:      ident.OrderIDs(),
		itemIDs:       ident.ItemIDs(),
		trackingCodes: ident.TrackingCodes(),
		arrival:       arrival.NewWindow(),
		now:           time.Now,
		maxAttempts:   defaultCreateAttempts,
		lookupTimeout: defaultLookupTimeout,
	}
	if s.notifier == nil {
		s.notifier = revalidate.Nop{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder persists an order built from a cart snapshot. The total is
// computed here from the lines and never recomputed afterwards.
func (s *OrderService) CreateOrder(ctx context.Context, lines []domain.CartLine, recipient domain.Recipient) (*domain.Order, error) {
	recipient, err := normalizeRecipient(recipient)
	if err != nil {
		return nil, err
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	actor := checkoutActor
	if id, ok := s.authz.CurrentUser(ctx); ok && id.Subject != "" {
		actor = id.Subject
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		order := s.buildOrder(lines, recipient)
		initial := domain.StatusChange{
			OrderID:   order.ID,
			To:        domain.OrderStatusPending,
			Actor:     actor,
			ChangedAt: order.CreatedAt,
		}

		err := s.repo.CreateOrder(ctx, order, initial)
		if err == nil {
			s.metrics.OrderCreated()
			s.log.InfoContext(ctx, "order created",
				"order_id", order.ID, "tracking_code", order.TrackingCode, "total", order.TotalAmount.StringFixed(2))
			s.notifier.Invalidate(ctx, revalidate.OrderKeys(order.ID, order.TrackingCode)...)
			return order, nil
		}
		if !errors.Is(err, repository.ErrDuplicateTrackingCode) {
			return nil, &PersistenceError{Op: "create order", Err: err}
		}

		lastErr = err
		s.metrics.TrackingConflict()
		s.log.WarnContext(ctx, "tracking code collision, regenerating", "attempt", attempt)
	}
	return nil, &PersistenceError{Op: "create order", Err: lastErr, Retryable: true}
}

func (s *OrderService) buildOrder(lines []domain.CartLine, recipient domain.Recipient) *domain.Order {
	now := s.now().UTC()
	order := &domain.Order{
		ID:               s.orderIDs.Next(),
		TrackingCode:     s.trackingCodes.Next(),
		Recipient:        recipient,
		Status:           domain.OrderStatusPending,
		EstimatedArrival: s.arrival.Estimate(now).UTC(),
		CreatedAt:        now,
		UpdatedAt:        now,
		Items:            make([]domain.OrderItem, 0, len(lines)),
	}

	total := decimal.Zero
	for _, l := range lines {
		item := domain.OrderItem{
			ID:        s.itemIDs.Next(),
			OrderID:   order.ID,
			ProductID: l.ProductID,
			Name:      l.Name,
			Image:     l.Image,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Variant:   l.Variant,
		}
		total = total.Add(item.Subtotal())
		order.Items = append(order.Items, item)
	}
	order.TotalAmount = total
	return order
}

// GetByTrackingCode is the public lookup. Unknown and malformed codes report
// found == false without an error.
//
// Concurrent lookups of one code share a single fetch. The fetch runs on a
// context detached from any one caller, so a caller that goes away only
// abandons its own wait.
func (s *OrderService) GetByTrackingCode(ctx context.Context, code string) (*domain.Order, bool, error) {
	code = strings.TrimSpace(code)
	if !ident.ValidTrackingCode(code) {
		return nil, false, nil
	}

	ch := s.sfg.DoChan(code, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.lookupTimeout)
		defer cancel()
		return s.lookupTrackingCode(fetchCtx, code)
	})

	select {
	case <-ctx.Done():
		return nil, false, &PersistenceError{Op: "get order by tracking code", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		order := res.Val.(*domain.Order)
		return order, order != nil, nil
	}
}

func (s *OrderService) lookupTrackingCode(ctx context.Context, code string) (*domain.Order, error) {
	version, cacheable := int64(0), false
	if s.cache != nil {
		order, err := s.cache.Get(ctx, code)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", "error", err)
		}
		// the generation must be read before the store so a mutation
		// committed after this point refuses the fill below
		if version, err = s.cache.Version(ctx, code); err == nil {
			cacheable = true
		} else {
			s.log.WarnContext(ctx, "cache version error", "error", err)
		}
	}

	order, err := s.repo.GetOrderByTrackingCode(ctx, code)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get order by tracking code", Err: err}
	}

	if cacheable {
		go func(o *domain.Order) {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := s.cache.Set(setCtx, o, version)
			switch {
			case errors.Is(err, cache.ErrStale):
				s.log.Debug("cache fill skipped, order changed during lookup", "tracking_code", o.TrackingCode)
			case err != nil:
				s.log.Warn("cache set error", "error", err)
			}
		}(order)
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoErr("get order", err)
	}
	return order, nil
}

// ListOrders pages through all orders, newest first. query, when set, is
// matched case-insensitively against tracking code, recipient name and email.
func (s *OrderService) ListOrders(ctx context.Context, page, pageSize int, query string) (*domain.OrderPage, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	page, pageSize = normalizePage(page, pageSize, DefaultPageSize)

	orders, total, err := s.repo.ListOrders(ctx, domain.OrderFilter{Page: page, PageSize: pageSize, Query: query})
	if err != nil {
		return nil, &PersistenceError{Op: "list orders", Err: err}
	}
	return &domain.OrderPage{
		Orders:     orders,
		Pagination: domain.NewPagination(page, pageSize, total),
	}, nil
}

// ExportOrders returns every order matching query for the spreadsheet export.
func (s *OrderService) ExportOrders(ctx context.Context, query string) ([]domain.Order, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	var all []domain.Order
	for page := 1; ; page++ {
		orders, total, err := s.repo.ListOrders(ctx, domain.OrderFilter{Page: page, PageSize: exportPageSize, Query: query})
		if err != nil {
			return nil, &PersistenceError{Op: "export orders", Err: err}
		}
		all = append(all, orders...)
		if len(orders) < exportPageSize || int64(len(all)) >= total {
			return all, nil
		}
	}
}

// SetStatus moves an order to any recognized status, including backwards.
// Concurrent updates are last-write-wins; each one is recorded in the history.
func (s *OrderService) SetStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	admin, err := s.currentAdmin(ctx)
	if err != nil {
		return nil, err
	}
	next, ok := domain.ParseStatus(status)
	if !ok {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", status))
	}

	order, err := s.repo.UpdateStatus(ctx, id, domain.StatusChange{
		OrderID:   id,
		To:        next,
		Actor:     admin.Subject,
		ChangedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, s.mapRepoErr("update order status", err)
	}

	s.metrics.StatusChanged(string(next))
	s.log.InfoContext(ctx, "order status changed", "order_id", id, "status", next, "actor", admin.Subject)
	s.notifier.Invalidate(ctx, revalidate.OrderKeys(order.ID, order.TrackingCode)...)
	return order, nil
}

func (s *OrderService) StatusHistory(ctx context.Context, id string) ([]domain.StatusChange, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	history, err := s.repo.StatusHistory(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "status history", Err: err}
	}
	// every stored order has at least its creation row
	if len(history) == 0 {
		return nil, ErrOrderNotFound
	}
	return history, nil
}

// DeleteOrder purges the order with its items and history.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	admin, err := s.currentAdmin(ctx)
	if err != nil {
		return err
	}
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return s.mapRepoErr("get order", err)
	}
	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return s.mapRepoErr("delete order", err)
	}

	s.log.InfoContext(ctx, "order deleted", "order_id", id, "actor", admin.Subject)
	s.notifier.Invalidate(ctx, revalidate.OrderKeys(order.ID, order.TrackingCode)...)
	return nil
}

func (s *OrderService) requireAdmin(ctx context.Context) error {
	_, err := s.currentAdmin(ctx)
	return err
}

func (s *OrderService) currentAdmin(ctx context.Context) (auth.Identity, error) {
	return requireAdmin(ctx, s.authz)
}

func (s *OrderService) mapRepoErr(op string, err error) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return ErrOrderNotFound
	}
	return &PersistenceError{Op: op, Err: err}
}

func requireAdmin(ctx context.Context, authz auth.Authorizer) (auth.Identity, error) {
	if !authz.IsAdmin(ctx) {
		return auth.Identity{}, ErrUnauthorized
	}
	id, ok := authz.CurrentUser(ctx)
	if !ok {
		return auth.Identity{}, ErrUnauthorized
	}
	return id, nil
}

func normalizePage(page, size, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func normalizeRecipient(r domain.Recipient) (domain.Recipient, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	r.City = strings.TrimSpace(r.City)
	r.ZipCode = strings.TrimSpace(r.ZipCode)
	r.GiftMessage = strings.TrimSpace(r.GiftMessage)

	switch {
	case r.Name == "":
		return r, invalid("recipient.name", "is required")
	case r.Email == "":
		return r, invalid("recipient.email", "is required")
	case r.Phone == "":
		return r, invalid("recipient.phone", "is required")
	case r.Address == "":
		return r, invalid("recipient.address", "is required")
	}
	addr, err := mail.ParseAddress(r.Email)
	if err != nil || addr.Address != r.Email {
		return r, invalid("recipient.email", "is not a valid email address")
	}
	return r, nil
}

func validateLines(lines []domain.CartLine) error {
	if len(lines) == 0 {
		return invalid("items", "cart is empty")
	}
	for i, l := range lines {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case l.ProductID == "":
			return invalid(field+".product_id", "is required")
		case strings.TrimSpace(l.Name) == "":
			return invalid(field+".name", "is required")
		case l.Quantity < 1:
			return invalid(field+".quantity", "must be at least 1")
		case l.UnitPrice.IsNegative():
			return invalid(field+".unit_price", "must not be negative")
		}
	}
	return nil
}
