package security

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agenthive/auth-service/internal/autherr"
)

const bearerPrefix = "Bearer "

// TokenErrorClassifier decides which failure code a rejected bearer token
// maps to. Classification is structural only: the token is decoded without
// checking its signature, so a well-formed forged token that is not expired
// falls through to the internal-error code.
type TokenErrorClassifier struct {
	parser *jwt.Parser
}

func NewTokenErrorClassifier() *TokenErrorClassifier {
	return &TokenErrorClassifier{parser: jwt.NewParser()}
}

func (c *TokenErrorClassifier) Classify(rawAuthorizationHeader string) autherr.Code {
	if !strings.HasPrefix(rawAuthorizationHeader, bearerPrefix) {
		return autherr.AccessTokenInvalid
	}
	raw := rawAuthorizationHeader[len(bearerPrefix):]

	claims := jwt.MapClaims{}
	if _, _, err := c.parser.ParseUnverified(raw, claims); err != nil {
		return autherr.AccessTokenInvalid
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.Before(time.Now()) {
		return autherr.AccessTokenExpired
	}

	return autherr.InternalError
}
