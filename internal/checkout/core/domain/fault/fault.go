// Package fault classifies checkout errors so the transport layer can map
// them to responses without knowing which component produced them.
package fault

import (
	"errors"
	"fmt"
)

// Kind is the error class. It decides the HTTP status family and whether
// the error may ever be treated as best effort.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindUpstream     Kind = "UPSTREAM_FAILURE"
	KindTrust        Kind = "TRUST_FAILURE"
	KindNotification Kind = "NOTIFICATION_FAILURE"
)

// Stable machine-readable codes returned to callers.
const (
	CodeEmptyCart           = "EMPTY_CART"
	CodeInvalidItem         = "INVALID_ITEM"
	CodeInvalidJSON         = "INVALID_JSON"
	CodeTxIDRequired        = "TxID_REQUIRED"
	CodeSessionCreateFailed = "SESSION_CREATE_FAILED"
	CodePaymentNotValid     = "PAYMENT_NOT_VALID"
	CodeValidationFailed    = "VALIDATION_UNAVAILABLE"
	CodeCorruptPayload      = "MISSING_OR_CORRUPT_PAYLOAD"
	CodeAmountMismatch      = "AMOUNT_MISMATCH"
	CodeDeliveryFailed      = "DELIVERY_FAILED"
	CodeOrderFailed         = "ORDER_FAILED"
	CodeRateLimited         = "RATE_LIMITED"
)

type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func Validation(code string, err error) *Error { return New(KindValidation, code, err) }
func Upstream(code string, err error) *Error   { return New(KindUpstream, code, err) }
func Trust(code string, err error) *Error      { return New(KindTrust, code, err) }

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Code returns the machine-readable code of err, or "" when err is not classified.
func Code(err error) string {
	if fe, ok := As(err); ok {
		return fe.Code
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	fe, ok := As(err)
	return ok && fe.Kind == kind
}
