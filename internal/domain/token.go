package domain

import (
	"fmt"
	"time"
)

// RefreshToken is an opaque bearer secret handed to the client exactly once.
// It is never stored on this struct beyond the request that produced it.
type RefreshToken struct {
	Token     string
	ExpiresAt time.Time
}

func NewRefreshToken(token string, expiresAt time.Time) (RefreshToken, error) {
	if token == "" {
		return RefreshToken{}, fmt.Errorf("%w: token is required", ErrSessionValidation)
	}
	if expiresAt.IsZero() {
		return RefreshToken{}, fmt.Errorf("%w: expiration is required", ErrSessionValidation)
	}
	return RefreshToken{Token: token, ExpiresAt: expiresAt}, nil
}

// TokenPair is produced once per successful signin and discarded after the
// response is assembled.
type TokenPair struct {
	AccessToken  string
	RefreshToken RefreshToken
}
