package service

import (
	"context"
	"errors"
	"fmt"

	"accountd/internal/auth"
	"accountd/internal/domain"
	"accountd/internal/store"
)

// AuthService verifies credentials against stored accounts.
type AuthService struct {
	users  *store.UserStore
	hasher auth.PasswordHasher
}

func NewAuthService(users *store.UserStore, hasher auth.PasswordHasher) *AuthService {
	return &AuthService{users: users, hasher: hasher}
}

// Authenticate returns the account matching email and plaintext password.
// Unknown email, deactivated account, missing stored hash, and wrong password
// all fail with the same domain.ErrInvalidCredentials so callers cannot
// enumerate accounts.
func (s *AuthService) Authenticate(ctx context.Context, email, plaintext string) (*domain.User, error) {
	if email == "" || plaintext == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if !user.CanAuthenticate() {
		return nil, domain.ErrInvalidCredentials
	}
	if !s.hasher.Verify(plaintext, user.CredentialHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}
