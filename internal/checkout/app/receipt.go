package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subfusion/checkout/internal/checkout/coordinator"
	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/ports"
)

var errReceiptAlreadySent = fmt.Errorf("%w: receipt already sent", coordinator.ErrHalt)

// claimReceiptStep takes the transaction's slot in the idempotency set.
// Its compensation gives the slot back so a later replay can retry.
type claimReceiptStep struct {
	idem    ports.IdempotencyStore
	key     string
	ttl     time.Duration
	claimed bool
}

func (s *claimReceiptStep) Name() string { return "claim_receipt" }

func (s *claimReceiptStep) Execute(ctx context.Context) error {
	ok, err := s.idem.Claim(ctx, s.key, s.ttl)
	switch {
	case err != nil:
		// a duplicate receipt beats a lost one
		slog.WarnContext(ctx, "idempotency check failed, sending receipt anyway", "txn_id", s.key, "error", err)
		return nil
	case !ok:
		return errReceiptAlreadySent
	}
	s.claimed = true
	return nil
}

func (s *claimReceiptStep) Compensate(ctx context.Context) error {
	if !s.claimed {
		return nil
	}
	return s.idem.Release(ctx, s.key)
}

type sendReceiptStep struct {
	notifier ports.Notifier
	order    entity.OrderSnapshot
	delivery entity.Delivery
}

func (s *sendReceiptStep) Name() string { return "send_receipt" }

func (s *sendReceiptStep) Execute(ctx context.Context) error {
	d, err := s.notifier.Send(ctx, s.order)
	s.delivery = d
	return err
}

// Compensate is a no-op: a sent email cannot be recalled.
func (s *sendReceiptStep) Compensate(context.Context) error { return nil }
