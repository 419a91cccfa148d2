package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/domain/fault"
	"github.com/subfusion/checkout/internal/checkout/core/domain/pricing"
	"github.com/subfusion/checkout/internal/checkout/core/ports"
	"github.com/subfusion/checkout/internal/checkout/journal"
)

// DefaultManualMethods are the mobile-wallet methods where the customer
// pays out of band and types the wallet transaction id into the storefront.
var DefaultManualMethods = []string{"bkash", "nagad", "rocket"}

type ManualOrder struct {
	Items     []entity.LineItem
	Customer  entity.Customer
	PayMethod string
	TxID      string
}

// OrderService accepts orders paid outside the hosted gateway. The receipt
// email is the merchant's only record of such an order, so a failed send
// fails the request.
type OrderService struct {
	calc     pricing.Calculator
	notifier ports.Notifier
	journal  journal.Repository // nil-safe
	manual   map[string]bool
	now      func() time.Time
}

func NewOrderService(calc pricing.Calculator, notifier ports.Notifier, repo journal.Repository, manualMethods []string) *OrderService {
	manual := make(map[string]bool, len(manualMethods))
	for _, m := range manualMethods {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			manual[m] = true
		}
	}
	return &OrderService{
		calc:     calc,
		notifier: notifier,
		journal:  repo,
		manual:   manual,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RequiresTxID reports whether method is a manual method that needs the
// customer's wallet transaction id.
func (s *OrderService) RequiresTxID(method string) bool {
	return s.manual[strings.ToLower(strings.TrimSpace(method))]
}

func (s *OrderService) Place(ctx context.Context, req ManualOrder) (entity.OrderSnapshot, entity.Delivery, error) {
	ctx, span := tracer.Start(ctx, "checkout.place_order")
	defer span.End()

	txid := strings.TrimSpace(req.TxID)
	if s.RequiresTxID(req.PayMethod) && txid == "" {
		return entity.OrderSnapshot{}, entity.Delivery{}, fault.Validation(fault.CodeTxIDRequired, nil)
	}

	quote, err := s.calc.Price(req.Items)
	if err != nil {
		return entity.OrderSnapshot{}, entity.Delivery{}, err
	}

	now := s.now()
	order := entity.OrderSnapshot{
		ID:            NewTxnID(now),
		Items:         req.Items,
		Customer:      req.Customer,
		Subtotal:      quote.Subtotal,
		Fees:          quote.Fees,
		Total:         quote.Total,
		PaymentMethod: strings.ToLower(strings.TrimSpace(req.PayMethod)),
		PaymentRef:    txid,
		CreatedAt:     now,
	}

	d, err := s.notifier.Send(ctx, order)
	if err != nil {
		slog.ErrorContext(ctx, "order receipt failed", "order_id", order.ID, "error", err)
		record(ctx, s.journal, journal.NewEntry(ctx, order.ID, journal.EventReceiptFailed, "order", fault.CodeOrderFailed, nil))
		return order, d, fault.New(fault.KindNotification, fault.CodeOrderFailed, err)
	}

	if d.Sent {
		record(ctx, s.journal, journal.NewEntry(ctx, order.ID, journal.EventReceiptSent, "order", "",
			map[string]string{"pay": order.PaymentMethod, "txid": order.PaymentRef}))
	}
	slog.InfoContext(ctx, "order placed", "order_id", order.ID, "pay", order.PaymentMethod, "total", order.Total, "emailed", d.Sent)
	return order, d, nil
}
