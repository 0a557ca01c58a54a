package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/justuche224/swift/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	mu      sync.RWMutex
	inner   *MemoryStorage
	failSet bool
	sets    int
}

func (f *failingStorage) Get(ctx context.Context, owner string) ([]domain.CartLine, error) {
	return f.inner.Get(ctx, owner)
}

func (f *failingStorage) Set(ctx context.Context, owner string, lines []domain.CartLine) error {
	f.mu.Lock()
	f.sets++
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errors.New("storage unavailable")
	}
	return f.inner.Set(ctx, owner, lines)
}

func (f *failingStorage) Clear(ctx context.Context, owner string) error {
	return f.inner.Clear(ctx, owner)
}

func line(productID, variant, price string, qty int) domain.CartLine {
	return domain.CartLine{
		ProductID: productID,
		Variant:   variant,
		Name:      "Gift " + productID,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func openLedger(t *testing.T, store Storage) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), store, "session-1")
	require.NoError(t, err)
	return l
}

func TestAdd_SameKeyMerges(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, NewMemoryStorage())

	require.NoError(t, l.Add(ctx, line("P1", "M", "10.00", 1)))
	require.NoError(t, l.Add(ctx, line("P1", "M", "10.00", 2)))

	lines := l.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "P1", lines[0].ProductID)
	assert.Equal(t, "M", lines[0].Variant)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestAdd_VariantIsPartOfIdentity(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, NewMemoryStorage())

	require.NoError(t, l.Add(ctx, line("P1", "", "10.00", 1)))
	require.NoError(t, l.Add(ctx, line("P1", "M", "10.00", 1)))

	lines := l.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "", lines[0].Variant)
	assert.Equal(t, "M", lines[1].Variant)
}

func TestAdd_RepeatedAddsSumQuantities(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, NewMemoryStorage())

	want := 0
	for q := 1; q <= 20; q++ {
		require.NoError(t, l.Add(ctx, line("P9", "L", "1.50", q)))
		want += q
	}

	lines := l.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, want, lines[0].Quantity)
	assert.Equal(t, want, l.TotalItems())
}

func TestAdd_RejectsInvalidLines(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, NewMemoryStorage())

	assert.ErrorIs(t, l.Add(ctx, line("P1", "", "10.00", 0)), ErrInvalidQuantity)
	assert.ErrorIs(t, l.Add(ctx, line("", "", "10.00", 1)), ErrMissingProduct)
	assert.True(t, l.IsEmpty())
}

func TestQuantity_ByKey(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, NewMemoryStorage())
	require.NoError(t, l.Add(ctx, line("P1", "M", "5.00", 2)))
	require.NoError(t, l.Add(ctx, line("P1", "M", "5.00", 3)))

	assert.Equal(t, 5, l.Quantity("P1", "M"))
	assert.Zero(t, l.Quantity("P1", ""))
	assert.Zero(t, l.Quantity("P9", "M"))
}

func TestRemove_AbsentKeyIsNoop(t *testing.T) {
	ctx := context.Background()
	store := &failingStorage{inner: NewMemoryStorage()}
	l := openLedger(t, store)
	require.NoError(t, l.Add(ctx, line("P1", "M", "10.00", 1)))
	before := l.Lines()
	setsBefore := store.sets

	require.NoError(t, l.Remove(ctx, "P1", "XL"))
	require.NoError(t, l.Remove(ctx, "P2", ""))

	assert.Equal(t, before, l.Lines())
	assert.Equal(t, setsBefore, store.sets)
}

func TestRemove_DeletesOnlyMatchingKey(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, NewMemoryStorage())
	require.NoError(t, l.Add(ctx, line("P1", "", "10.00", 1)))
	require.NoError(t, l.Add(ctx, line("P1", "M", "10.00", 1)))

	require.NoError(t, l.Remove(ctx, "P1", ""))

	lines := l.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "M", lines[0].Variant)
}

func TestSetQuantity(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, NewMemoryStorage())
	require.NoError(t, l.Add(ctx, line("P1", "M", "10.00", 1)))

	require.NoError(t, l.SetQuantity(ctx, "P1", 4, "M"))
	assert.Equal(t, 4, l.Lines()[0].Quantity)

	// zero is kept; removal is the caller's job
	require.NoError(t, l.SetQuantity(ctx, "P1", 0, "M"))
	require.Len(t, l.Lines(), 1)
	assert.Equal(t, 0, l.Lines()[0].Quantity)

	assert.ErrorIs(t, l.SetQuantity(ctx, "P1", -1, "M"), ErrNegativeQuantity)
	require.NoError(t, l.SetQuantity(ctx, "missing", 3, ""))
	assert.Len(t, l.Lines(), 1)
}

func TestTotals_RecomputedEachCall(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t, NewMemoryStorage())

	assert.True(t, l.TotalPrice().Equal(decimal.Zero))

	require.NoError(t, l.Add(ctx, line("P1", "", "10.00", 2)))
	require.NoError(t, l.Add(ctx, line("P2", "S", "4.99", 3)))
	assert.Equal(t, "34.97", l.TotalPrice().StringFixed(2))
	assert.Equal(t, 5, l.TotalItems())

	require.NoError(t, l.SetQuantity(ctx, "P2", 1, "S"))
	assert.Equal(t, "24.99", l.TotalPrice().StringFixed(2))
	assert.Equal(t, 3, l.TotalItems())
}

func TestFailedWriteLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &failingStorage{inner: NewMemoryStorage()}
	l := openLedger(t, store)
	require.NoError(t, l.Add(ctx, line("P1", "", "10.00", 1)))

	store.failSet = true
	err := l.Add(ctx, line("P1", "", "10.00", 5))

	assert.Error(t, err)
	assert.Equal(t, 1, l.Lines()[0].Quantity)
}

func TestLedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	first := openLedger(t, store)
	require.NoError(t, first.Add(ctx, line("P1", "M", "12.00", 2)))

	reopened := openLedger(t, store)
	assert.Equal(t, first.Lines(), reopened.Lines())
}

func TestLedgersAreIsolatedPerOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	a, err := Open(ctx, store, "alice")
	require.NoError(t, err)
	require.NoError(t, a.Add(ctx, line("P1", "", "1.00", 1)))

	b, err := Open(ctx, store, "bob")
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	l := openLedger(t, store)
	require.NoError(t, l.Add(ctx, line("P1", "", "1.00", 1)))

	require.NoError(t, l.Clear(ctx))

	assert.True(t, l.IsEmpty())
	persisted, err := store.Get(ctx, "session-1")
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestOpen_RequiresOwner(t *testing.T) {
	_, err := Open(context.Background(), NewMemoryStorage(), "")
	assert.ErrorIs(t, err, ErrMissingOwner)
}
