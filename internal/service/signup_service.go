package service

import (
	"context"
	"errors"
	"strings"

	"github.com/agenthive/auth-service/internal/autherr"
	"github.com/agenthive/auth-service/internal/domain"
	"github.com/agenthive/auth-service/internal/observability"
	"github.com/agenthive/auth-service/internal/repository"
	"github.com/agenthive/auth-service/internal/security"
)

type SignupService struct {
	users  repository.UserRepository
	hasher security.PasswordHasher
}

func NewSignupService(users repository.UserRepository, hasher security.PasswordHasher) *SignupService {
	return &SignupService{users: users, hasher: hasher}
}

func (s *SignupService) Signup(ctx context.Context, username, email, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		observability.RecordAuthSignup("invalid")
		return autherr.Of(autherr.InvalidSignupCredentials)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		observability.RecordAuthSignup("error")
		return err
	}

	user := domain.RegisterUser(username, email, hash)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			observability.RecordAuthSignup("duplicate")
			return autherr.Of(autherr.InvalidSignupCredentials)
		}
		observability.RecordAuthSignup("error")
		return err
	}

	observability.RecordAuthSignup("success")
	return nil
}
