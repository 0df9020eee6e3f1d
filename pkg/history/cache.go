package history

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Cached wraps a Source with a short-lived LRU cache. Concurrent
// requests for the same address share one upstream call.
type Cached struct {
	src   Source
	cache *expirable.LRU[string, []Transaction]
	group singleflight.Group
}

// NewCached caches up to size results for ttl each.
func NewCached(src Source, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 64
	}
	return &Cached{
		src:   src,
		cache: expirable.NewLRU[string, []Transaction](size, nil, ttl),
	}
}

func (c *Cached) Sent(ctx context.Context, publicKey string) ([]Transaction, error) {
	return c.get(ctx, "sent", publicKey, c.src.Sent)
}

func (c *Cached) Received(ctx context.Context, publicKey string) ([]Transaction, error) {
	return c.get(ctx, "received", publicKey, c.src.Received)
}

// Purge drops every cached result.
func (c *Cached) Purge() {
	c.cache.Purge()
}

func (c *Cached) get(ctx context.Context, kind, publicKey string,
	fetch func(context.Context, string) ([]Transaction, error)) ([]Transaction, error) {

	key := kind + "|" + strings.ToLower(publicKey)
	if txs, ok := c.cache.Get(key); ok {
		return clone(txs), nil
	}

	// The shared fetch outlives any one caller; each caller stops waiting
	// on its own ctx.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		txs, err := fetch(context.WithoutCancel(ctx), publicKey)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, txs)
		return txs, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]Transaction)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func clone(txs []Transaction) []Transaction {
	return append([]Transaction(nil), txs...)
}
