package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/agenthive/auth-service/internal/domain"
)

// SignInProvider verifies submitted credentials against a stored principal.
type SignInProvider interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// TokenProvider issues access tokens and rotates refresh tokens for an
// authenticated principal.
type TokenProvider interface {
	GenerateAccessToken(user *domain.User) (string, error)
	RotateRefreshToken(ctx context.Context, principalID uuid.UUID) (domain.RefreshToken, error)
	Issue(ctx context.Context, user *domain.User) (domain.TokenPair, error)
}
