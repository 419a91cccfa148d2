// Package token implements the Order Token: the only place an order's
// state lives between checkout and the gateway callback.
package token

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/ports"
)

var ErrInvalidToken = errors.New("token: invalid order token")

var (
	_ ports.TokenCodec = PlainCodec{}
	_ ports.TokenCodec = (*SignedCodec)(nil)
)

// New returns a SignedCodec when secret is set and a PlainCodec otherwise.
func New(secret string) ports.TokenCodec {
	if secret == "" {
		return PlainCodec{}
	}
	return NewSignedCodec([]byte(secret))
}

// PlainCodec is JSON wrapped in unpadded base64url. It carries no integrity
// tag: anyone can forge a token that decodes.
type PlainCodec struct{}

func (PlainCodec) Encode(s entity.OrderSnapshot) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("token: encode: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (PlainCodec) Decode(tok string) (entity.OrderSnapshot, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return entity.OrderSnapshot{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return unmarshalSnapshot(raw)
}

func unmarshalSnapshot(raw []byte) (entity.OrderSnapshot, error) {
	var s entity.OrderSnapshot
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return entity.OrderSnapshot{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if dec.More() {
		return entity.OrderSnapshot{}, fmt.Errorf("%w: trailing data", ErrInvalidToken)
	}
	if s.ID == "" || len(s.Items) == 0 {
		return entity.OrderSnapshot{}, fmt.Errorf("%w: missing id or items", ErrInvalidToken)
	}
	return s, nil
}
