package ports

import (
	"context"
	"time"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
)

// TokenCodec turns an order snapshot into an opaque, transport-safe token
// and back. Decode never panics; malformed input yields an error.
type TokenCodec interface {
	Encode(s entity.OrderSnapshot) (string, error)
	Decode(token string) (entity.OrderSnapshot, error)
}

// Notifier delivers the receipt of a finalized order.
type Notifier interface {
	Send(ctx context.Context, order entity.OrderSnapshot) (entity.Delivery, error)
}

// IdempotencyStore remembers which transactions already had side effects.
// Claim reports true only to the first caller for a key within ttl.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
