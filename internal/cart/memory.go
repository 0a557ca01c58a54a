package cart

import (
	"context"
	"sync"

	"github.com/justuche224/swift/internal/domain"
)

// MemoryStorage keeps carts in process memory. Carts do not survive a restart.
type MemoryStorage struct {
	mu    sync.RWMutex
	carts map[string][]domain.CartLine
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{carts: make(map[string][]domain.CartLine)}
}

func (m *MemoryStorage) Get(_ context.Context, owner string) ([]domain.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lines, ok := m.carts[owner]
	if !ok {
		return nil, nil
	}
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out, nil
}

func (m *MemoryStorage) Set(_ context.Context, owner string, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]domain.CartLine, len(lines))
	copy(stored, lines)
	m.carts[owner] = stored
	return nil
}

func (m *MemoryStorage) Clear(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, owner)
	return nil
}
