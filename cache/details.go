package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Fetch loads the value for one key.
type Fetch[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Details memoizes Fetch results in a size-bounded LRU whose entries expire after ttl.
// Errors are not cached.
type Details[K comparable, V any] struct {
	lru   *expirable.LRU[K, V]
	fetch Fetch[K, V]
}

func NewDetails[K comparable, V any](size int, ttl time.Duration, fetch Fetch[K, V]) *Details[K, V] {
	return &Details[K, V]{
		lru:   expirable.NewLRU[K, V](size, nil, ttl),
		fetch: fetch,
	}
}

// Get returns the cached value for key, fetching it on a miss.
func (d *Details[K, V]) Get(ctx context.Context, key K) (V, error) {
	if v, ok := d.lru.Get(key); ok {
		return v, nil
	}
	v, err := d.fetch(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	d.lru.Add(key, v)
	return v, nil
}

// Forget drops key so the next Get fetches it again.
func (d *Details[K, V]) Forget(key K) { d.lru.Remove(key) }

func (d *Details[K, V]) Len() int { return d.lru.Len() }
