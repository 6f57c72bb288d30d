package security

import "github.com/google/uuid"

// TokenSource produces opaque refresh-token identifiers.
type TokenSource interface {
	NewOpaqueToken() string
}

// UUIDTokenSource draws 128 bits from crypto/rand via the uuid package.
type UUIDTokenSource struct{}

func (UUIDTokenSource) NewOpaqueToken() string { return uuid.NewString() }
