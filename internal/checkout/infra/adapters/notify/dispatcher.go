// Package notify renders order receipts and hands them to the mail channel.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/domain/fault"
	"github.com/subfusion/checkout/internal/checkout/core/domain/money"
	"github.com/subfusion/checkout/internal/checkout/core/ports"
)

var _ ports.Notifier = (*Dispatcher)(nil)

type DispatcherConfig struct {
	Brand          string
	CurrencySymbol string
	From           string
	MerchantEmail  string
	Timeout        time.Duration
}

// Dispatcher sends receipts to the merchant mailbox and, when known, the
// customer. A nil mailer turns every Send into a reported no-op.
type Dispatcher struct {
	mailer Mailer
	cfg    DispatcherConfig
}

func NewDispatcher(mailer Mailer, cfg DispatcherConfig) *Dispatcher {
	if cfg.Brand == "" {
		cfg.Brand = "SubFusion"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{mailer: mailer, cfg: cfg}
}

func (d *Dispatcher) Send(ctx context.Context, order entity.OrderSnapshot) (entity.Delivery, error) {
	recipients := d.recipients(order)
	if d.mailer == nil || len(recipients) == 0 {
		slog.InfoContext(ctx, "email not configured, receipt not sent", "order_id", order.ID)
		return entity.Delivery{Sent: false}, nil
	}

	html, err := RenderReceipt(d.cfg.Brand, d.cfg.CurrencySymbol, order)
	if err != nil {
		return entity.Delivery{}, fault.New(fault.KindNotification, fault.CodeDeliveryFailed, err)
	}

	msg := Message{
		From:    d.cfg.From,
		To:      recipients,
		Subject: fmt.Sprintf("New Order %s • %s", order.ID, money.Format(d.cfg.CurrencySymbol, order.Total)),
		HTML:    html,
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	if err := d.mailer.Send(sendCtx, msg); err != nil {
		return entity.Delivery{Recipients: recipients}, fault.New(fault.KindNotification, fault.CodeDeliveryFailed, err)
	}

	slog.InfoContext(ctx, "receipt sent", "order_id", order.ID, "recipients", len(recipients))
	return entity.Delivery{Sent: true, Recipients: recipients}, nil
}

func (d *Dispatcher) recipients(order entity.OrderSnapshot) []string {
	if d.cfg.MerchantEmail == "" {
		return nil
	}
	to := []string{d.cfg.MerchantEmail}
	if order.Customer.Email != "" && order.Customer.Email != d.cfg.MerchantEmail {
		to = append(to, order.Customer.Email)
	}
	return to
}
