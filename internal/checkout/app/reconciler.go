package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/subfusion/checkout/internal/checkout/coordinator"
	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/domain/fault"
	"github.com/subfusion/checkout/internal/checkout/core/ports"
	"github.com/subfusion/checkout/internal/checkout/journal"
)

// paidStatuses are the gateway statuses that mean money was captured.
var paidStatuses = map[string]bool{
	"VALID":     true,
	"VALIDATED": true,
}

func IsPaid(status string) bool {
	return paidStatuses[status]
}

// SuccessCallback is what the gateway posts (or redirects with) to the
// success URL. Every field travelled through the customer's browser.
type SuccessCallback struct {
	Status string
	ValID  string
	TxnID  string
	Token  string
}

// Callback is a fail or cancel redirect.
type Callback struct {
	TxnID  string
	Status string
	Error  string
}

// IPN is the gateway's server-to-server notification.
type IPN struct {
	TxnID  string
	ValID  string
	Status string
	Amount string
}

type ReconcilerConfig struct {
	Currency   string
	MinCharge  int64
	ReceiptTTL time.Duration
}

// Reconciler drives the callback state machine. It keeps no state of its
// own: the order comes from the token, the payment truth from the gateway.
type Reconciler struct {
	gateway  ports.Gateway
	codec    ports.TokenCodec
	notifier ports.Notifier
	idem     ports.IdempotencyStore // nil-safe: every replay re-sends
	journal  journal.Repository     // nil-safe
	cfg      ReconcilerConfig
}

func NewReconciler(
	gw ports.Gateway,
	codec ports.TokenCodec,
	notifier ports.Notifier,
	idem ports.IdempotencyStore,
	repo journal.Repository,
	cfg ReconcilerConfig,
) *Reconciler {
	if cfg.ReceiptTTL <= 0 {
		cfg.ReceiptTTL = 72 * time.Hour
	}
	return &Reconciler{
		gateway:  gw,
		codec:    codec,
		notifier: notifier,
		idem:     idem,
		journal:  repo,
		cfg:      cfg,
	}
}

// Success handles the success redirect. Only an independent validator call
// can move a transaction to VALIDATED; the callback's own status can only
// reject it.
func (r *Reconciler) Success(ctx context.Context, cb SuccessCallback) entity.Outcome {
	ctx, span := tracer.Start(ctx, "checkout.reconcile_success")
	defer span.End()
	span.SetAttributes(attribute.String("checkout.txn_id", cb.TxnID), attribute.String("checkout.callback_status", cb.Status))

	out := r.success(ctx, cb)
	span.SetAttributes(attribute.String("checkout.state", string(out.State)))
	if out.State != entity.StateValidated {
		span.SetStatus(codes.Error, out.Reason)
		slog.WarnContext(ctx, "payment rejected", "txn_id", cb.TxnID, "val_id", cb.ValID, "reason", out.Reason, "error", out.Err)
		record(ctx, r.journal, journal.NewEntry(ctx, cb.TxnID, journal.EventRejected, "success", out.Reason,
			map[string]string{"val_id": cb.ValID, "status": cb.Status}))
		return out
	}

	record(ctx, r.journal, journal.NewEntry(ctx, out.Order.ID, journal.EventValidated, "success", "",
		map[string]string{"val_id": cb.ValID, "total": fmt.Sprint(out.Order.Total)}))
	slog.InfoContext(ctx, "payment validated", "txn_id", out.Order.ID, "total", out.Order.Total)

	// the receipt must not be abandoned when the customer's browser goes away
	out.Delivery, out.DeliveryErr = r.dispatch(context.WithoutCancel(ctx), out.Order)
	return out
}

func (r *Reconciler) success(ctx context.Context, cb SuccessCallback) entity.Outcome {
	if !IsPaid(cb.Status) {
		return rejected(fault.Trust(fault.CodePaymentNotValid, fmt.Errorf("callback status %q", cb.Status)))
	}
	if cb.ValID == "" {
		return rejected(fault.Trust(fault.CodePaymentNotValid, errors.New("missing val_id")))
	}

	v, err := r.gateway.Validate(ctx, cb.ValID)
	if err != nil {
		return rejected(fault.Upstream(fault.CodeValidationFailed, err))
	}
	if !IsPaid(v.Status) {
		return rejected(fault.Trust(fault.CodePaymentNotValid, fmt.Errorf("validator status %q", v.Status)))
	}

	order, err := r.codec.Decode(cb.Token)
	if err != nil {
		return rejected(fault.Trust(fault.CodeCorruptPayload, err))
	}

	if err := r.checkAmount(v, order); err != nil {
		return rejected(err)
	}

	gatewayTxn := v.TxnID
	if gatewayTxn == "" {
		gatewayTxn = cb.TxnID
	}
	return entity.Outcome{
		State:        entity.StateValidated,
		Order:        order.WithGatewayTxn(gatewayTxn, v.BankTxnID),
		GatewayTxnID: gatewayTxn,
		Charged:      chargeAmount(order.Total, r.cfg.MinCharge),
	}
}

// checkAmount ties the token's cart to the money the gateway actually
// captured, so a forged token cannot ride on a cheaper genuine payment.
func (r *Reconciler) checkAmount(v ports.Validation, order entity.OrderSnapshot) *fault.Error {
	if v.Currency != "" && r.cfg.Currency != "" && v.Currency != r.cfg.Currency {
		return fault.Trust(fault.CodeAmountMismatch, fmt.Errorf("currency %s, expected %s", v.Currency, r.cfg.Currency))
	}
	if v.Amount.IsZero() {
		return nil
	}
	expected := chargeAmount(order.Total, r.cfg.MinCharge)
	if v.Amount.LessThan(decimal.NewFromInt(expected)) {
		return fault.Trust(fault.CodeAmountMismatch, fmt.Errorf("captured %s, order charges %d", v.Amount, expected))
	}
	return nil
}

func (r *Reconciler) dispatch(ctx context.Context, order entity.OrderSnapshot) (entity.Delivery, error) {
	send := &sendReceiptStep{notifier: r.notifier, order: order}
	steps := []coordinator.Step{send}
	if r.idem != nil {
		steps = []coordinator.Step{&claimReceiptStep{idem: r.idem, key: order.ID, ttl: r.cfg.ReceiptTTL}, send}
	}

	err := coordinator.NewOrchestrator(order.ID, steps).Start(ctx)
	switch {
	case errors.Is(err, errReceiptAlreadySent):
		slog.InfoContext(ctx, "receipt already sent for transaction", "txn_id", order.ID)
		return entity.Delivery{Duplicate: true}, nil
	case err != nil:
		slog.ErrorContext(ctx, "receipt delivery failed", "txn_id", order.ID, "error", err)
		record(ctx, r.journal, journal.NewEntry(ctx, order.ID, journal.EventReceiptFailed, "success", fault.Code(err), nil))
		return send.delivery, err
	}

	if send.delivery.Sent {
		record(ctx, r.journal, journal.NewEntry(ctx, order.ID, journal.EventReceiptSent, "success", "", nil))
	}
	return send.delivery, nil
}

// Fail handles the fail redirect. Nothing in it is trusted or validated.
func (r *Reconciler) Fail(ctx context.Context, cb Callback) entity.Outcome {
	slog.InfoContext(ctx, "payment failed callback", "txn_id", cb.TxnID, "status", cb.Status, "gateway_error", cb.Error)
	record(ctx, r.journal, journal.NewEntry(ctx, cb.TxnID, journal.EventFailed, "fail", cb.Status, nil))
	return entity.Outcome{State: entity.StateFailed, GatewayTxnID: cb.TxnID}
}

// Cancel handles the cancel redirect.
func (r *Reconciler) Cancel(ctx context.Context, cb Callback) entity.Outcome {
	slog.InfoContext(ctx, "payment cancelled callback", "txn_id", cb.TxnID, "status", cb.Status)
	record(ctx, r.journal, journal.NewEntry(ctx, cb.TxnID, journal.EventCancelled, "cancel", cb.Status, nil))
	return entity.Outcome{State: entity.StateCancelled, GatewayTxnID: cb.TxnID}
}

// Notify records an IPN. It is advisory only: it is acknowledged
// unconditionally and never finalizes an order.
func (r *Reconciler) Notify(ctx context.Context, ipn IPN) {
	slog.InfoContext(ctx, "ipn received", "txn_id", ipn.TxnID, "val_id", ipn.ValID, "status", ipn.Status, "amount", ipn.Amount)
	record(ctx, r.journal, journal.NewEntry(ctx, ipn.TxnID, journal.EventIPNReceived, "ipn", "",
		map[string]string{"val_id": ipn.ValID, "status": ipn.Status, "amount": ipn.Amount}))
}

func rejected(err *fault.Error) entity.Outcome {
	return entity.Outcome{State: entity.StateRejected, Reason: err.Code, Err: err}
}
