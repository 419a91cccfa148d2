// Package journal is an append-only record of what happened to each
// checkout transaction: session creation and every inbound callback.
//
// It is an audit trail, not an order store. Orders still live only inside
// their Order Token; the journal keeps the transitions so an operator can
// see where a transaction ended up and jump to its trace via trace_id.
package journal

import "time"

// Event is the transition being recorded.
type Event string

const (
	EventSessionCreated Event = "SESSION_CREATED"
	EventSessionFailed  Event = "SESSION_FAILED"
	EventValidated      Event = "VALIDATED"
	EventRejected       Event = "REJECTED"
	EventCancelled      Event = "CANCELLED"
	EventFailed         Event = "FAILED"
	EventIPNReceived    Event = "IPN_RECEIVED"
	EventReceiptSent    Event = "RECEIPT_SENT"
	EventReceiptFailed  Event = "RECEIPT_FAILED"
)

// Entry is a single row in the journal.
type Entry struct {
	// TxnID is the checkout transaction id, or the gateway's id once known.
	TxnID string

	Event Event

	// Path names the entry point: create, success, fail, cancel, ipn, order.
	Path string

	// Reason is the machine-readable code for rejections and failures.
	Reason string

	// Payload is a JSON object with path-specific details (val_id, amount).
	Payload string

	TraceID string
	SpanID  string

	At time.Time
}
