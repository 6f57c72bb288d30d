package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agenthive/auth-service/internal/domain"
)

const (
	tokenIssuer    = "self"
	accessTokenTTL = 24 * time.Hour
)

type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenSigner mints and verifies access tokens with an asymmetric keypair:
// the private key never leaves the signer, verification needs only the
// public half.
type TokenSigner struct {
	keys *Keypair
}

func NewTokenSigner(keys *Keypair) *TokenSigner {
	return &TokenSigner{keys: keys}
}

func (s *TokenSigner) SignAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Scope: strings.Join([]string{user.Role.Authority()}, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.keys.Private)
}

func (s *TokenSigner) ParseAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodRS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return s.keys.Public, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
