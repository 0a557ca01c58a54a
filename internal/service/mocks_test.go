package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/justuche224/swift/internal/auth"
	"github.com/justuche224/swift/internal/cache"
	"github.com/justuche224/swift/internal/catalog"
	"github.com/justuche224/swift/internal/domain"
	"github.com/justuche224/swift/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockOrderRepository implements repository.OrderRepository in memory.
type MockOrderRepository struct {
	mu         sync.RWMutex
	orders     map[string]*domain.Order
	history    map[string][]domain.StatusChange
	CreateErrs []error // returned by successive CreateOrder calls before succeeding
	Err        error   // returned by every other call when set
	Calls      map[string]int

	// AfterTrackingRead runs once a tracking lookup has its result, outside the lock.
	AfterTrackingRead func(ctx context.Context)
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders:  make(map[string]*domain.Order),
		history: make(map[string][]domain.StatusChange),
		Calls:   make(map[string]int),
	}
}

func (m *MockOrderRepository) count(name string) {
	m.Calls[name]++
}

func (m *MockOrderRepository) CallCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Calls[name]
}

func (m *MockOrderRepository) CreateOrder(_ context.Context, order *domain.Order, initial domain.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("CreateOrder")

	if len(m.CreateErrs) > 0 {
		err := m.CreateErrs[0]
		m.CreateErrs = m.CreateErrs[1:]
		return err
	}
	for _, o := range m.orders {
		if o.TrackingCode == order.TrackingCode {
			return repository.ErrDuplicateTrackingCode
		}
	}
	stored := *order
	stored.Items = append([]domain.OrderItem(nil), order.Items...)
	m.orders[order.ID] = &stored
	m.history[order.ID] = append(m.history[order.ID], initial)
	return nil
}

func (m *MockOrderRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("GetOrderByID")

	if m.Err != nil {
		return nil, m.Err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) GetOrderByTrackingCode(ctx context.Context, code string) (*domain.Order, error) {
	m.mu.Lock()
	m.count("GetOrderByTrackingCode")
	order, err := m.findByTrackingCode(code)
	hook := m.AfterTrackingRead
	m.mu.Unlock()

	if hook != nil {
		hook(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
	return order, err
}

func (m *MockOrderRepository) findByTrackingCode(code string) (*domain.Order, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, o := range m.orders {
		if o.TrackingCode == code {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *MockOrderRepository) ListOrders(_ context.Context, f domain.OrderFilter) ([]domain.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("ListOrders")

	if m.Err != nil {
		return nil, 0, m.Err
	}
	var matched []domain.Order
	q := strings.ToLower(f.Query)
	for _, o := range m.orders {
		if q == "" ||
			strings.Contains(strings.ToLower(o.TrackingCode), q) ||
			strings.Contains(strings.ToLower(o.Recipient.Name), q) ||
			strings.Contains(strings.ToLower(o.Recipient.Email), q) {
			matched = append(matched, *o)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	start := (f.Page - 1) * f.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], int64(len(matched)), nil
}

func (m *MockOrderRepository) UpdateStatus(_ context.Context, id string, change domain.StatusChange) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("UpdateStatus")

	if m.Err != nil {
		return nil, m.Err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	change.From = o.Status
	o.Status = change.To
	o.UpdatedAt = change.ChangedAt
	m.history[id] = append(m.history[id], change)
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) DeleteOrder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("DeleteOrder")

	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	delete(m.history, id)
	return nil
}

func (m *MockOrderRepository) StatusHistory(_ context.Context, id string) ([]domain.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("StatusHistory")

	if m.Err != nil {
		return nil, m.Err
	}
	return append([]domain.StatusChange(nil), m.history[id]...), nil
}

func (m *MockOrderRepository) RunMigrations() error { return nil }
func (m *MockOrderRepository) Close() error         { return nil }

func (m *MockOrderRepository) Stored(id string) (domain.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return *o, true
}

// MockAuthorizer returns a fixed identity.
type MockAuthorizer struct {
	Identity *auth.Identity
}

func adminAuthz() *MockAuthorizer {
	return &MockAuthorizer{Identity: &auth.Identity{Subject: "admin@swift.test", Role: auth.RoleAdmin}}
}

func customerAuthz() *MockAuthorizer {
	return &MockAuthorizer{Identity: &auth.Identity{Subject: "shopper-1", Role: "customer"}}
}

func anonymousAuthz() *MockAuthorizer {
	return &MockAuthorizer{}
}

func (m *MockAuthorizer) IsAdmin(context.Context) bool {
	return m.Identity != nil && m.Identity.IsAdmin()
}

func (m *MockAuthorizer) CurrentUser(context.Context) (auth.Identity, bool) {
	if m.Identity == nil {
		return auth.Identity{}, false
	}
	return *m.Identity, true
}

// MockNotifier records every invalidation.
type MockNotifier struct {
	mu   sync.RWMutex
	Keys [][]string
}

func (m *MockNotifier) Invalidate(_ context.Context, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, keys)
}

func (m *MockNotifier) Calls() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]string(nil), m.Keys...)
}

// MockOrderCache implements cache.OrderCache in memory.
type MockOrderCache struct {
	mu          sync.RWMutex
	orders      map[string]domain.Order
	generations map[string]int64
	GetErr      error
	Sets        int
}

func NewMockOrderCache() *MockOrderCache {
	return &MockOrderCache{
		orders:      make(map[string]domain.Order),
		generations: make(map[string]int64),
	}
}

func (m *MockOrderCache) Get(_ context.Context, code string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	o, ok := m.orders[code]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &o, nil
}

func (m *MockOrderCache) Version(_ context.Context, code string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generations[code], nil
}

func (m *MockOrderCache) Set(_ context.Context, o *domain.Order, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generations[o.TrackingCode] != version {
		return cache.ErrStale
	}
	m.Sets++
	m.orders[o.TrackingCode] = *o
	return nil
}

func (m *MockOrderCache) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, code)
	m.generations[code]++
	return nil
}

func (m *MockOrderCache) SetCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Sets
}

// sequence yields prefix-1, prefix-2, ...
type sequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (s *sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%d", s.prefix, s.n)
}

// repeating yields the same value a fixed number of times before counting up.
type repeating struct {
	mu     sync.Mutex
	values []string
}

func (r *repeating) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.values[0]
	if len(r.values) > 1 {
		r.values = r.values[1:]
	}
	return v
}

// MockCatalog implements catalog.Repository in memory.
type MockCatalog struct {
	mu    sync.RWMutex
	gifts map[string]domain.Gift
	next  int
	Err   error
}

func NewMockCatalog(gifts ...domain.Gift) *MockCatalog {
	m := &MockCatalog{gifts: make(map[string]domain.Gift)}
	for _, g := range gifts {
		m.gifts[g.ID] = g
	}
	return m
}

func (m *MockCatalog) List(_ context.Context, f catalog.ListFilter) ([]domain.Gift, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, 0, m.Err
	}
	var out []domain.Gift
	for _, g := range m.gifts {
		if f.ActiveOnly && !g.IsActive {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	start := (f.Page - 1) * f.PageSize
	if start > len(out) {
		start = len(out)
	}
	end := start + f.PageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (m *MockCatalog) Get(_ context.Context, id string) (*domain.Gift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	g, ok := m.gifts[id]
	if !ok {
		return nil, catalog.ErrGiftNotFound
	}
	return &g, nil
}

func (m *MockCatalog) Create(_ context.Context, g *domain.Gift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.next++
	g.ID = fmt.Sprintf("gift-%d", m.next)
	m.gifts[g.ID] = *g
	return nil
}

func (m *MockCatalog) Update(_ context.Context, g *domain.Gift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.gifts[g.ID]; !ok {
		return catalog.ErrGiftNotFound
	}
	m.gifts[g.ID] = *g
	return nil
}

func (m *MockCatalog) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gifts[id]; !ok {
		return catalog.ErrGiftNotFound
	}
	delete(m.gifts, id)
	return nil
}

func (m *MockCatalog) SetActive(_ context.Context, id string, active bool) (*domain.Gift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gifts[id]
	if !ok {
		return nil, catalog.ErrGiftNotFound
	}
	g.IsActive = active
	m.gifts[id] = g
	return &g, nil
}
