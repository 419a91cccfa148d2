package ports

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
)

// CallbackURLs are the four endpoints the gateway returns the customer (or
// its own server) to.
type CallbackURLs struct {
	Success string
	Fail    string
	Cancel  string
	IPN     string
}

type SessionRequest struct {
	TxnID     string
	Amount    int64
	Currency  string
	Customer  entity.Customer
	ItemCount int
	Token     string
	URLs      CallbackURLs
}

type SessionResponse struct {
	Status      string
	CheckoutURL string
	Raw         json.RawMessage
}

// Validation is the gateway's own record of a transaction, fetched by
// validation id over a server-to-server call.
type Validation struct {
	Status    string
	TxnID     string
	ValID     string
	BankTxnID string
	Amount    decimal.Decimal
	Currency  string
}

// Gateway is the hosted-checkout provider.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error)
	Validate(ctx context.Context, valID string) (Validation, error)
}
