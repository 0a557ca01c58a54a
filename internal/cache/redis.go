package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/justuche224/swift/internal/domain"
	"github.com/justuche224/swift/internal/revalidate"
	"github.com/redis/go-redis/v9"
)

const (
	trackPrefix = "/track/"

	// must outlive any in-flight lookup
	generationTTL = 24 * time.Hour
)

// setIfCurrent writes the view only while the generation still matches the
// one the reader saw. A missing generation counts as zero.
var setIfCurrent = redis.NewScript(`
local gen = redis.call("GET", KEYS[2])
if not gen then gen = "0" end
if gen ~= ARGV[1] then return 0 end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
	log     *slog.Logger
}

var (
	_ OrderCache          = (*RedisCache)(nil)
	_ revalidate.Notifier = (*RedisCache)(nil)
)

func NewRedisCache(client *redis.Client, baseTTL time.Duration, log *slog.Logger) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 5 * time.Minute
	}
	return &RedisCache{client: client, baseTTL: baseTTL, log: log}
}

func (r *RedisCache) Get(ctx context.Context, trackingCode string) (*domain.Order, error) {
	data, err := r.client.Get(ctx, cacheKey(trackingCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("unmarshal order failed: %w", err)
	}
	return &order, nil
}

// Version returns the current generation of a tracking code.
func (r *RedisCache) Version(ctx context.Context, trackingCode string) (int64, error) {
	v, err := r.client.Get(ctx, generationKey(trackingCode)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return v, nil
}

// Set stores the view with a jittered TTL so entries written together do not
// expire together. It returns ErrStale when the code was invalidated after
// version was read.
func (r *RedisCache) Set(ctx context.Context, order *domain.Order, version int64) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order failed: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.IntN(60))*time.Second
	keys := []string{cacheKey(order.TrackingCode), generationKey(order.TrackingCode)}
	stored, err := setIfCurrent.Run(ctx, r.client, keys, strconv.FormatInt(version, 10), data, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if stored == 0 {
		return ErrStale
	}
	return nil
}

// Delete drops the view and advances the generation in one transaction.
func (r *RedisCache) Delete(ctx context.Context, trackingCode string) error {
	return r.drop(ctx, []string{trackingCode})
}

func (r *RedisCache) drop(ctx context.Context, codes []string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, code := range codes {
			pipe.Del(ctx, cacheKey(code))
			pipe.Incr(ctx, generationKey(code))
			pipe.Expire(ctx, generationKey(code), generationTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Invalidate drops the tracking views named by /track/<code> keys and ignores
// every other key.
func (r *RedisCache) Invalidate(ctx context.Context, keys ...string) {
	var codes []string
	for _, k := range keys {
		if code, ok := strings.CutPrefix(k, trackPrefix); ok && code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return
	}

	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := r.drop(delCtx, codes); err != nil && r.log != nil {
		r.log.Warn("cache invalidate error", "codes", codes, "error", err)
	}
}

func cacheKey(trackingCode string) string {
	return fmt.Sprintf("order:track:%s", trackingCode)
}

func generationKey(trackingCode string) string {
	return fmt.Sprintf("order:track:gen:%s", trackingCode)
}
