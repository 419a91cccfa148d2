package entity

import "time"

// LineItem is one priced cart line. Prices are in the minor currency unit.
type LineItem struct {
	ProductID string            `json:"pid"`
	Plan      string            `json:"plan"`
	UnitPrice int64             `json:"price"`
	Quantity  int64             `json:"qty"`
	Meta      map[string]string `json:"meta"`
}

// LineTotal is UnitPrice times Quantity. Only call it on items that
// pricing.Calculator accepted; it does not check for overflow.
func (i LineItem) LineTotal() int64 {
	return i.UnitPrice * i.Quantity
}

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// OrderSnapshot is the whole state of an order. It is never stored by the
// server; it travels inside the Order Token through the gateway and back.
type OrderSnapshot struct {
	ID            string     `json:"id"`
	Items         []LineItem `json:"items"`
	Customer      Customer   `json:"customer"`
	Subtotal      int64      `json:"subtotal"`
	Fees          int64      `json:"fees"`
	Total         int64      `json:"total"`
	PaymentMethod string     `json:"pay,omitempty"`
	PaymentRef    string     `json:"txid,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// WithGatewayTxn returns a copy of the snapshot carrying the gateway's
// transaction id and payment reference. Gateway values win over the token.
func (s OrderSnapshot) WithGatewayTxn(txnID, paymentRef string) OrderSnapshot {
	if txnID != "" {
		s.ID = txnID
	}
	if paymentRef != "" {
		s.PaymentRef = paymentRef
	}
	return s
}
