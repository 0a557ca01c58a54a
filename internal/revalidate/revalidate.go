// Package revalidate tells caches and connected admin clients which views
// went stale after a mutation. Delivery is best effort: notifiers never
// return errors to the caller.
package revalidate

import (
	"context"
	"time"
)

const (
	AdminOrdersKey = "/admin/orders"
	AdminGiftsKey  = "/admin/gifts"
	GiftCatalogKey = "/gift-catalog"
	trackKeyPrefix = "/track/"
)

type Notifier interface {
	Invalidate(ctx context.Context, keys ...string)
}

// Notice is the payload published to every transport.
type Notice struct {
	Keys []string  `json:"keys"`
	At   time.Time `json:"at"`
}

func OrderKeys(id, trackingCode string) []string {
	keys := []string{AdminOrdersKey}
	if id != "" {
		keys = append(keys, AdminOrdersKey+"/"+id)
	}
	if trackingCode != "" {
		keys = append(keys, TrackKey(trackingCode))
	}
	return keys
}

func GiftKeys(id string) []string {
	keys := []string{AdminGiftsKey}
	if id != "" {
		keys = append(keys, AdminGiftsKey+"/"+id)
	}
	return append(keys, GiftCatalogKey)
}

func TrackKey(code string) string {
	return trackKeyPrefix + code
}

// Fanout delivers to every notifier in order.
type Fanout []Notifier

func (f Fanout) Invalidate(ctx context.Context, keys ...string) {
	for _, n := range f {
		if n != nil {
			n.Invalidate(ctx, keys...)
		}
	}
}

type Nop struct{}

func (Nop) Invalidate(context.Context, ...string) {}
