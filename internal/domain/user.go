package domain

import (
	"strings"
	"time"
)

// Role orders account privilege levels from least to most privileged.
type Role int

const (
	RoleGuest Role = iota
	RoleUser
	RoleAdmin
	RoleSuperAdmin
)

// RoleAny is a list-filter sentinel meaning "all roles". It sits outside the
// enum on purpose: RoleGuest is a real role and cannot double as "no filter".
const RoleAny Role = -1

// Valid reports whether r is one of the four real roles.
func (r Role) Valid() bool {
	return r >= RoleGuest && r <= RoleSuperAdmin
}

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "super_admin"
	default:
		return "unknown"
	}
}

// ParseRole maps a canonical role string back to its Role. Unrecognized
// input yields RoleGuest; callers that need strict parsing should compare
// the round trip themselves.
func ParseRole(s string) Role {
	switch strings.ToLower(s) {
	case "guest":
		return RoleGuest
	case "user":
		return RoleUser
	case "admin":
		return RoleAdmin
	case "super_admin":
		return RoleSuperAdmin
	default:
		return RoleGuest
	}
}

// User represents an account. ID 0 means the record has not been persisted
// yet; the store assigns ids on creation and never reuses them.
type User struct {
	ID             int64
	Email          string
	Name           string
	CredentialHash string
	Role           Role
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks the fields a caller controls before persistence. The id is
// deliberately not checked here: it belongs to the store.
func (u *User) Validate() error {
	if u.Email == "" {
		return ErrInvalidUser
	}
	if !ValidateEmail(u.Email) {
		return ErrInvalidUser
	}
	if !u.Role.Valid() {
		return ErrInvalidUser
	}
	return nil
}

// HasPermission reports whether the user's role grants the named capability.
// Unknown roles grant nothing.
func (u *User) HasPermission(capability string) bool {
	switch u.Role {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		return capability != "super_admin"
	case RoleUser:
		return capability == "read" || capability == "write"
	case RoleGuest:
		return capability == "read"
	default:
		return false
	}
}

// CanAuthenticate reports whether the record is eligible for credential
// checks at all. A record without a stored hash can never authenticate.
func (u *User) CanAuthenticate() bool {
	return u.Active && u.CredentialHash != ""
}

// CanonicalEmail returns the form used for uniqueness and lookup. Stored
// emails keep their original casing.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
