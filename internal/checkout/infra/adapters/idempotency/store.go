// Package idempotency records which transactions already had their
// receipt dispatched, so replayed callbacks do not notify twice.
package idempotency

import (
	"context"
	"time"

	"github.com/subfusion/checkout/internal/checkout/core/ports"
	"github.com/subfusion/checkout/internal/pkg/cache"
)

const operation = "receipt"

var _ ports.IdempotencyStore = (*Store)(nil)

type Store struct {
	cache cache.Cache
	now   func() time.Time
}

func NewStore(c cache.Cache) *Store {
	return &Store{cache: c, now: time.Now}
}

func (s *Store) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.cache.SetNX(ctx, s.cache.GenerateKey(operation, key), s.now().UTC().Format(time.RFC3339), ttl)
}

func (s *Store) Release(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, s.cache.GenerateKey(operation, key))
}
