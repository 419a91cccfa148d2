package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/domain/fault"
	"github.com/subfusion/checkout/internal/checkout/core/domain/pricing"
	"github.com/subfusion/checkout/internal/checkout/core/ports"
	"github.com/subfusion/checkout/internal/checkout/journal"
)

const PaymentMethodGateway = "sslcommerz"

type SessionConfig struct {
	// Live is false when store credentials are missing; sessions are then
	// demo sessions and the gateway is never contacted.
	Live      bool
	DemoURL   string
	Currency  string
	MinCharge int64
	BaseURL   string
}

// CallbackURLs derives the four gateway return URLs from the public base URL.
func (c SessionConfig) CallbackURLs() ports.CallbackURLs {
	return ports.CallbackURLs{
		Success: c.BaseURL + "/api/payment/success",
		Fail:    c.BaseURL + "/api/payment/fail",
		Cancel:  c.BaseURL + "/api/payment/cancel",
		IPN:     c.BaseURL + "/api/payment/ipn",
	}
}

// ChargeAmount is the amount sent to the gateway: the order total, raised
// to the gateway's minimum charge.
func (c SessionConfig) ChargeAmount(total int64) int64 {
	return chargeAmount(total, c.MinCharge)
}

func chargeAmount(total, minCharge int64) int64 {
	return max(total, minCharge)
}

type SessionInitiator struct {
	calc    pricing.Calculator
	codec   ports.TokenCodec
	gateway ports.Gateway
	journal journal.Repository // nil-safe
	cfg     SessionConfig
	now     func() time.Time
}

func NewSessionInitiator(
	calc pricing.Calculator,
	codec ports.TokenCodec,
	gw ports.Gateway,
	repo journal.Repository,
	cfg SessionConfig,
) *SessionInitiator {
	return &SessionInitiator{
		calc:    calc,
		codec:   codec,
		gateway: gw,
		journal: repo,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create prices the cart, folds it into an Order Token and opens a hosted
// checkout session carrying that token. Nothing is stored server-side.
func (s *SessionInitiator) Create(ctx context.Context, items []entity.LineItem, customer entity.Customer) (entity.GatewaySession, error) {
	ctx, span := tracer.Start(ctx, "checkout.create_session")
	defer span.End()

	quote, err := s.calc.Price(items)
	if err != nil {
		span.SetStatus(codes.Error, fault.Code(err))
		return entity.GatewaySession{}, err
	}

	now := s.now()
	snapshot := entity.OrderSnapshot{
		ID:            NewTxnID(now),
		Items:         items,
		Customer:      customer,
		Subtotal:      quote.Subtotal,
		Fees:          quote.Fees,
		Total:         quote.Total,
		PaymentMethod: PaymentMethodGateway,
		CreatedAt:     now,
	}
	span.SetAttributes(
		attribute.String("checkout.txn_id", snapshot.ID),
		attribute.Int64("checkout.total", snapshot.Total),
		attribute.Bool("checkout.demo", !s.cfg.Live),
	)

	if !s.cfg.Live {
		slog.InfoContext(ctx, "gateway not configured, returning demo session", "txn_id", snapshot.ID, "total", snapshot.Total)
		return entity.GatewaySession{TxnID: snapshot.ID, CheckoutURL: s.cfg.DemoURL, Demo: true}, nil
	}

	tok, err := s.codec.Encode(snapshot)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return entity.GatewaySession{}, fault.Upstream(fault.CodeSessionCreateFailed, fmt.Errorf("encode order token: %w", err))
	}

	amount := s.cfg.ChargeAmount(snapshot.Total)
	resp, err := s.gateway.CreateSession(ctx, ports.SessionRequest{
		TxnID:     snapshot.ID,
		Amount:    amount,
		Currency:  s.cfg.Currency,
		Customer:  customer,
		ItemCount: len(items),
		Token:     tok,
		URLs:      s.cfg.CallbackURLs(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fault.CodeSessionCreateFailed)
		slog.ErrorContext(ctx, "gateway session create failed", "txn_id", snapshot.ID, "error", err)
		record(ctx, s.journal, journal.NewEntry(ctx, snapshot.ID, journal.EventSessionFailed, "create", fault.CodeSessionCreateFailed,
			map[string]string{"error": err.Error()}))
		return entity.GatewaySession{}, fault.Upstream(fault.CodeSessionCreateFailed, err)
	}

	if resp.CheckoutURL == "" {
		slog.WarnContext(ctx, "gateway returned no checkout url", "txn_id", snapshot.ID, "gateway_status", resp.Status)
	}
	record(ctx, s.journal, journal.NewEntry(ctx, snapshot.ID, journal.EventSessionCreated, "create", "",
		map[string]string{"amount": strconv.FormatInt(amount, 10), "gateway_status": resp.Status}))
	slog.InfoContext(ctx, "gateway session created", "txn_id", snapshot.ID, "amount", amount)

	return entity.GatewaySession{TxnID: snapshot.ID, CheckoutURL: resp.CheckoutURL, Raw: resp.Raw}, nil
}
