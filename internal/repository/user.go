package repository

import (
	"context"

	"accountd/internal/domain"
)

// UserRepository defines persistence operations for User records. All
// implementations must use parameterized statements; the store layer above
// trusts that emails and names are never interpolated into SQL text.
type UserRepository interface {
	Init(ctx context.Context) error
	// Create inserts the record and returns the backing-store-assigned id.
	// A case-insensitive email collision yields domain.ErrDuplicateEmail.
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByEmail looks up by canonical (lowercased) email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update writes the mutable fields (name, role, active) of the record
	// with user.ID. Missing records yield domain.ErrNotFound.
	Update(ctx context.Context, user *domain.User) error
	// SetActive flips the soft-delete flag. Missing records yield
	// domain.ErrNotFound; writing the current value is not an error.
	SetActive(ctx context.Context, id int64, active bool) error
	// UpdateCredential replaces the stored credential hash.
	UpdateCredential(ctx context.Context, id int64, hash string) error
	// List returns records matching the role filter (domain.RoleAny matches
	// all) and, unless includeInactive is set, only active ones. Order is
	// deterministic (ascending id).
	List(ctx context.Context, role domain.Role, includeInactive bool) ([]domain.User, error)
}
