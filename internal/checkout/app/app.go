// Package app holds the checkout use cases: opening a hosted session,
// reconciling gateway callbacks and accepting manual-payment orders.
package app

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/subfusion/checkout/internal/checkout/journal"
)

var tracer = otel.Tracer("github.com/subfusion/checkout/internal/checkout/app")

// NewTxnID returns a transaction id made of the creation time in
// milliseconds and a short random suffix: SF1760868000000-1a2b3c4d.
func NewTxnID(now time.Time) string {
	suffix := uuid.NewString()[:8]
	return "SF" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

// record appends to the journal when one is configured. Journal failures
// are logged and never change the outcome of a request.
func record(ctx context.Context, repo journal.Repository, entry *journal.Entry) {
	if repo == nil {
		return
	}
	if err := repo.Save(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "journal write failed", "txn_id", entry.TxnID, "event", entry.Event, "error", err)
	}
}
