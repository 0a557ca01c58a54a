package http

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/justuche224/swift/internal/catalog"
	"github.com/justuche224/swift/internal/domain"
)

// stubCatalog implements catalog.Repository in memory.
type stubCatalog struct {
	mu    sync.RWMutex
	gifts map[string]domain.Gift
	next  int
}

func newStubCatalog(gifts ...domain.Gift) *stubCatalog {
	c := &stubCatalog{gifts: make(map[string]domain.Gift)}
	for _, g := range gifts {
		c.gifts[g.ID] = g
	}
	return c
}

func (c *stubCatalog) List(_ context.Context, f catalog.ListFilter) ([]domain.Gift, int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.Gift
	for _, g := range c.gifts {
		if f.ActiveOnly && !g.IsActive {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	start := min((f.Page-1)*f.PageSize, len(out))
	end := min(start+f.PageSize, len(out))
	return out[start:end], total, nil
}

func (c *stubCatalog) Get(_ context.Context, id string) (*domain.Gift, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.gifts[id]
	if !ok {
		return nil, catalog.ErrGiftNotFound
	}
	return &g, nil
}

func (c *stubCatalog) Create(_ context.Context, g *domain.Gift) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	g.ID = fmt.Sprintf("gift-%d", c.next)
	c.gifts[g.ID] = *g
	return nil
}

func (c *stubCatalog) Update(_ context.Context, g *domain.Gift) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.gifts[g.ID]; !ok {
		return catalog.ErrGiftNotFound
	}
	c.gifts[g.ID] = *g
	return nil
}

func (c *stubCatalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.gifts[id]; !ok {
		return catalog.ErrGiftNotFound
	}
	delete(c.gifts, id)
	return nil
}

func (c *stubCatalog) SetActive(_ context.Context, id string, active bool) (*domain.Gift, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.gifts[id]
	if !ok {
		return nil, catalog.ErrGiftNotFound
	}
	g.IsActive = active
	c.gifts[id] = g
	return &g, nil
}

// trackerFunc adapts a function to OrderTracker.
type trackerFunc func(ctx context.Context, code string) (*domain.Order, bool, error)

func (f trackerFunc) GetByTrackingCode(ctx context.Context, code string) (*domain.Order, bool, error) {
	return f(ctx, code)
}
