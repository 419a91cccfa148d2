package entity

import "encoding/json"

// GatewaySession is the result of opening a hosted checkout. Raw holds the
// gateway's own response body, passed through to the storefront unchanged.
type GatewaySession struct {
	TxnID       string
	CheckoutURL string
	Demo        bool
	Raw         json.RawMessage
}
