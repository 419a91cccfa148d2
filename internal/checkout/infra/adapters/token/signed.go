package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
)

const issuer = "subfusion-checkout"

type orderClaims struct {
	Order entity.OrderSnapshot `json:"order"`
	jwt.RegisteredClaims
}

// SignedCodec carries the snapshot as a claim of an HS256 JWT. A token
// whose signature does not verify under the server secret never decodes.
type SignedCodec struct {
	secret []byte
}

func NewSignedCodec(secret []byte) *SignedCodec {
	return &SignedCodec{secret: secret}
}

func (c *SignedCodec) Encode(s entity.OrderSnapshot) (string, error) {
	claims := orderClaims{
		Order: s,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  s.ID,
			IssuedAt: jwt.NewNumericDate(s.CreatedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

func (c *SignedCodec) Decode(tok string) (entity.OrderSnapshot, error) {
	var claims orderClaims
	_, err := jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return entity.OrderSnapshot{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Order.ID == "" || claims.Order.ID != claims.Subject || len(claims.Order.Items) == 0 {
		return entity.OrderSnapshot{}, fmt.Errorf("%w: %v", ErrInvalidToken, errors.New("claims do not describe an order"))
	}
	return claims.Order, nil
}
