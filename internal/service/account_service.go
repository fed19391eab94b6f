package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"accountd/internal/auth"
	"accountd/internal/domain"
	"accountd/internal/store"
)

// AccountService composes the store and the password hasher into the account
// lifecycle operations the HTTP layer exposes.
type AccountService struct {
	users  *store.UserStore
	hasher auth.PasswordHasher
	logger *logrus.Logger
}

func NewAccountService(users *store.UserStore, hasher auth.PasswordHasher, logger *logrus.Logger) *AccountService {
	return &AccountService{users: users, hasher: hasher, logger: logger}
}

// Register creates an active account with a hashed credential.
func (s *AccountService) Register(ctx context.Context, email, name, password string, role domain.Role) (*domain.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:          email,
		Name:           name,
		CredentialHash: hash,
		Role:           role,
		Active:         true,
	}

	id, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": id, "role": role.String()}).Info("account registered")
	return user, nil
}

// ChangePassword re-hashes and stores a new credential for the account.
func (s *AccountService) ChangePassword(ctx context.Context, id int64, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.users.ChangeCredential(ctx, id, hash); err != nil {
		return err
	}
	s.logger.WithField("user_id", id).Info("credential rotated")
	return nil
}

// Deactivate soft-deletes the account. Repeated calls succeed.
func (s *AccountService) Deactivate(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}
