package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultUserTokenTTL is the lifetime of tokens handed to browser clients.
const DefaultUserTokenTTL = time.Hour

var errMissingCredentials = fmt.Errorf("%w: api key or secret is not configured", ErrProvider)

// Tokens signs HS256 client tokens with the provider's API secret. Server
// requests are signed by the SDK.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a token signer.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// UserToken returns a token that lets userID join calls from a client.
func (t *Tokens) UserToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	if len(t.secret) == 0 {
		return "", errMissingCredentials
	}
	if ttl <= 0 {
		ttl = DefaultUserTokenTTL
	}
	now := t.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
