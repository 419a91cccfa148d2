package entity

// State is a terminal state of the callback state machine.
type State string

const (
	StateValidated State = "VALIDATED"
	StateRejected  State = "REJECTED"
	StateCancelled State = "CANCELLED"
	StateFailed    State = "FAILED"
)

// Delivery reports what the notification step did with a receipt.
type Delivery struct {
	Sent       bool
	Duplicate  bool
	Recipients []string
}

// Outcome is the result of reconciling one inbound callback. Err is set for
// every state but VALIDATED; DeliveryErr never changes State.
type Outcome struct {
	State        State
	Order        OrderSnapshot
	GatewayTxnID string
	// Charged is what the gateway was asked to capture: the order total
	// raised to the minimum charge. Set only when VALIDATED.
	Charged      int64
	Reason       string
	Err          error
	Delivery     Delivery
	DeliveryErr  error
}
