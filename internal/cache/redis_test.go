package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/justuche224/swift/internal/domain"
	"github.com/justuche224/swift/internal/revalidate"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func testOrder() *domain.Order {
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	return &domain.Order{
		ID:               "order_1",
		TrackingCode:     "SWIFT-LZ3K9Q2A-7HX0PQ",
		Recipient:        domain.Recipient{Name: "Ada", Email: "ada@example.com", Phone: "1", Address: "x"},
		TotalAmount:      decimal.RequireFromString("20.00"),
		Status:           domain.OrderStatusProcessing,
		EstimatedArrival: now.AddDate(0, 0, 5),
		CreatedAt:        now,
		UpdatedAt:        now,
		Items: []domain.OrderItem{{
			ID: "item_1", OrderID: "order_1", ProductID: "P1", Name: "Candle",
			UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2,
		}},
	}
}

func TestSetGet_RoundTrip(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	order := testOrder()

	require.NoError(t, cache.Set(ctx, order, 0))
	assert.True(t, mr.Exists("order:track:SWIFT-LZ3K9Q2A-7HX0PQ"))

	ttl := mr.TTL("order:track:SWIFT-LZ3K9Q2A-7HX0PQ")
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.Less(t, ttl, 2*time.Minute)

	got, err := cache.Get(ctx, order.TrackingCode)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, "20.00", got.TotalAmount.StringFixed(2))
	assert.True(t, order.EstimatedArrival.Equal(got.EstimatedArrival))
	require.Len(t, got.Items, 1)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	got, err := cache.Get(context.Background(), "SWIFT-NOPE-NOPE")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("SWIFT-A-B"), "{broken"))

	_, err := cache.Get(context.Background(), "SWIFT-A-B")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestGet_RedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "SWIFT-A-B")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestInvalidate_DropsOnlyTrackKeys(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	order := testOrder()
	require.NoError(t, cache.Set(ctx, order, 0))
	require.NoError(t, mr.Set("unrelated", "1"))

	cache.Invalidate(ctx, revalidate.OrderKeys(order.ID, order.TrackingCode)...)

	assert.False(t, mr.Exists(cacheKey(order.TrackingCode)))
	assert.True(t, mr.Exists("unrelated"))
}

func TestInvalidate_IgnoresNonTrackKeys(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("SWIFT-A-B"), "{}"))

	cache.Invalidate(context.Background(), revalidate.GiftKeys("g1")...)

	assert.True(t, mr.Exists(cacheKey("SWIFT-A-B")))
}

func TestVersion_StartsAtZeroAndAdvancesOnDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	code := testOrder().TrackingCode

	v, err := cache.Version(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, cache.Delete(ctx, code))
	require.NoError(t, cache.Delete(ctx, code))

	v, err = cache.Version(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Greater(t, mr.TTL(generationKey(code)), time.Hour)
}

func TestSet_RefusedAfterInvalidate(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	order := testOrder()

	v, err := cache.Version(ctx, order.TrackingCode)
	require.NoError(t, err)

	cache.Invalidate(ctx, revalidate.OrderKeys(order.ID, order.TrackingCode)...)

	err = cache.Set(ctx, order, v)
	assert.ErrorIs(t, err, ErrStale)
	assert.False(t, mr.Exists(cacheKey(order.TrackingCode)))

	v, err = cache.Version(ctx, order.TrackingCode)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, order, v))
	assert.True(t, mr.Exists(cacheKey(order.TrackingCode)))
}

func TestDelete_DropsView(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	order := testOrder()
	require.NoError(t, cache.Set(ctx, order, 0))

	require.NoError(t, cache.Delete(ctx, order.TrackingCode))

	assert.False(t, mr.Exists(cacheKey(order.TrackingCode)))
	_, err := cache.Get(ctx, order.TrackingCode)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
