package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"accountd/internal/domain"
	"accountd/internal/repository"
)

// UserStore is the single source of truth for account CRUD. It keeps a
// read-through/write-through cache over the injected repository: every
// mutation hits the backing store first and touches the cache only after the
// write succeeds, so a failed write leaves no partial state.
type UserStore struct {
	repo     repository.UserRepository
	notifier *Notifier

	// writeMu serializes the check-then-insert critical sections. The
	// unique index on lower(email) backs it up if a duplicate ever races
	// past the in-process check.
	writeMu sync.Mutex

	mu      sync.RWMutex
	byID    map[int64]domain.User
	byEmail map[string]int64
}

func NewUserStore(repo repository.UserRepository, notifier *Notifier) *UserStore {
	return &UserStore{
		repo:     repo,
		notifier: notifier,
		byID:     make(map[int64]domain.User),
		byEmail:  make(map[string]int64),
	}
}

// Create validates and persists a new account. The repository assigns the id.
// An existing record with the same email, active or not, fails the call with
// domain.ErrDuplicateEmail.
func (s *UserStore) Create(ctx context.Context, user *domain.User) (int64, error) {
	if err := user.Validate(); err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.lookupEmail(ctx, user.Email); err == nil {
		return 0, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}

	id, err := s.repo.Create(ctx, user)
	if err != nil {
		return 0, err
	}

	s.cachePut(*user)
	s.notify(EventCreated, *user)
	return id, nil
}

// GetByID returns the account with the given id, soft-deleted ones included.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	if cached, ok := s.byID[id]; ok {
		s.mu.RUnlock()
		return &cached, nil
	}
	s.mu.RUnlock()

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cachePutLocked(*user)
	s.mu.Unlock()
	out := *user
	return &out, nil
}

// GetByEmail returns the account with the given email. Comparison is
// case-insensitive; the stored casing is returned verbatim.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.lookupEmail(ctx, email)
}

// Update writes the mutable fields (name, role, active) of an existing
// account. Id and email are immutable: an unpersisted id or a changed email
// fails with domain.ErrInvalidUser.
func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if user.ID <= 0 {
		return domain.ErrInvalidUser
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	if domain.CanonicalEmail(current.Email) != domain.CanonicalEmail(user.Email) {
		return domain.ErrInvalidUser
	}

	updated := *current
	updated.Name = user.Name
	updated.Role = user.Role
	updated.Active = user.Active

	if err := s.repo.Update(ctx, &updated); err != nil {
		return err
	}

	s.cachePut(updated)
	s.notify(EventUpdated, updated)
	return nil
}

// Delete soft-deletes the account: the record stays in storage with
// active=false. Deleting an already-inactive account succeeds.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}

	updated := *current
	updated.Active = false
	s.cachePut(updated)
	s.notify(EventDeactivated, updated)
	return nil
}

// ChangeCredential replaces the stored credential hash. The caller is
// responsible for producing the hash through a PasswordHasher.
func (s *UserStore) ChangeCredential(ctx context.Context, id int64, hash string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateCredential(ctx, id, hash); err != nil {
		return err
	}

	updated := *current
	updated.CredentialHash = hash
	s.cachePut(updated)
	return nil
}

// List returns accounts matching the role filter and the active flag.
// domain.RoleAny matches every role; it exists because RoleGuest is a real
// role and cannot mean "no filter". Order is ascending id.
func (s *UserStore) List(ctx context.Context, role domain.Role, includeInactive bool) ([]domain.User, error) {
	if role != domain.RoleAny && !role.Valid() {
		return nil, fmt.Errorf("%w: bad role filter", domain.ErrInvalidUser)
	}
	return s.repo.List(ctx, role, includeInactive)
}

func (s *UserStore) lookupEmail(ctx context.Context, email string) (*domain.User, error) {
	canonical := domain.CanonicalEmail(email)

	s.mu.RLock()
	if id, ok := s.byEmail[canonical]; ok {
		if cached, ok := s.byID[id]; ok {
			s.mu.RUnlock()
			return &cached, nil
		}
	}
	s.mu.RUnlock()

	user, err := s.repo.GetByEmail(ctx, canonical)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cachePutLocked(*user)
	s.mu.Unlock()
	out := *user
	return &out, nil
}

func (s *UserStore) cachePut(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cachePutLocked(user)
}

func (s *UserStore) cachePutLocked(user domain.User) {
	s.byID[user.ID] = user
	s.byEmail[domain.CanonicalEmail(user.Email)] = user.ID
}

func (s *UserStore) notify(kind EventKind, user domain.User) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(Event{Kind: kind, User: user})
}
