package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agenthive/auth-service/internal/domain"
	"github.com/agenthive/auth-service/internal/repository"
	"github.com/agenthive/auth-service/internal/security"
)

const refreshTokenTTL = 2 * time.Hour

// TokenService mints access tokens and rotates refresh tokens. Rotation only
// appends a new session row; prior sessions of the same principal stay live
// so multiple devices can hold their own refresh tokens concurrently.
type TokenService struct {
	signer   *security.TokenSigner
	tokens   security.TokenSource
	sessions repository.SessionRepository
}

func NewTokenService(signer *security.TokenSigner, tokens security.TokenSource, sessions repository.SessionRepository) *TokenService {
	return &TokenService{signer: signer, tokens: tokens, sessions: sessions}
}

func (s *TokenService) GenerateAccessToken(user *domain.User) (string, error) {
	return s.signer.SignAccessToken(user)
}

func (s *TokenService) RotateRefreshToken(ctx context.Context, principalID uuid.UUID) (domain.RefreshToken, error) {
	refreshToken, err := domain.NewRefreshToken(s.tokens.NewOpaqueToken(), time.Now().Add(refreshTokenTTL))
	if err != nil {
		return domain.RefreshToken{}, err
	}

	session, err := domain.NewSession(
		principalID,
		refreshToken.Token,
		clientIPFromContext(ctx),
		userAgentFromContext(ctx),
		"",
	)
	if err != nil {
		return domain.RefreshToken{}, err
	}

	if err := s.sessions.Rotate(ctx, session); err != nil {
		return domain.RefreshToken{}, err
	}
	return refreshToken, nil
}

// Issue runs the full signin token flow for an authenticated principal.
func (s *TokenService) Issue(ctx context.Context, user *domain.User) (domain.TokenPair, error) {
	access, err := s.GenerateAccessToken(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.RotateRefreshToken(ctx, user.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
