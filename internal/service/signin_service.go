package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthive/auth-service/internal/autherr"
	"github.com/agenthive/auth-service/internal/domain"
	"github.com/agenthive/auth-service/internal/observability"
	"github.com/agenthive/auth-service/internal/repository"
	"github.com/agenthive/auth-service/internal/security"
)

type SignInService struct {
	users      repository.UserRepository
	hasher     security.PasswordHasher
	abuseGuard AuthAbuseGuard
}

func NewSignInService(users repository.UserRepository, hasher security.PasswordHasher, abuseGuard AuthAbuseGuard) *SignInService {
	return &SignInService{users: users, hasher: hasher, abuseGuard: abuseGuard}
}

// Authenticate verifies the submitted email+password against the stored
// principal. The failure message surfaces the submitted email, matching the
// current wire contract (an account-enumeration gap, kept deliberately).
func (s *SignInService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if s.abuseGuard != nil {
		cooldown, err := s.abuseGuard.Check(ctx, AuthAbuseScopeLogin, email, clientIPFromContext(ctx))
		if err == nil && cooldown > 0 {
			observability.RecordAuthSignin("throttled")
			return nil, autherr.Of(autherr.TooManyLoginAttempts)
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.registerFailure(ctx, email)
			observability.RecordAuthSignin("failure")
			return nil, autherr.New(autherr.InvalidLoginCredentials, fmt.Sprintf("user:[%s] not found", email))
		}
		observability.RecordAuthSignin("error")
		return nil, err
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		s.registerFailure(ctx, email)
		observability.RecordAuthSignin("failure")
		return nil, autherr.New(autherr.InvalidLoginCredentials, fmt.Sprintf("user:[%s] not found", email))
	}

	if s.abuseGuard != nil {
		_ = s.abuseGuard.Reset(ctx, AuthAbuseScopeLogin, email, clientIPFromContext(ctx))
	}
	observability.RecordAuthSignin("success")
	return user, nil
}

func (s *SignInService) registerFailure(ctx context.Context, email string) {
	if s.abuseGuard == nil {
		return
	}
	_, _ = s.abuseGuard.RegisterFailure(ctx, AuthAbuseScopeLogin, email, clientIPFromContext(ctx))
}
