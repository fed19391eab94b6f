package domain

import "encoding/json"

// Representation is the wire/storage form of a User. The credential hash is
// not part of it and never leaves the process through this codec.
type Representation struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// ToRepresentation converts a User to its external form.
func ToRepresentation(u User) Representation {
	return Representation{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role.String(),
		Active: u.Active,
	}
}

// FromRepresentation is the inverse of ToRepresentation. Missing or invalid
// fields yield ErrMalformedInput rather than a zero-value record. Unknown
// role strings parse to guest per the documented fallback.
func FromRepresentation(rep Representation) (User, error) {
	if rep.ID < 0 {
		return User{}, ErrMalformedInput
	}
	if !ValidateEmail(rep.Email) {
		return User{}, ErrMalformedInput
	}
	if rep.Role == "" {
		return User{}, ErrMalformedInput
	}
	return User{
		ID:     rep.ID,
		Email:  rep.Email,
		Name:   rep.Name,
		Role:   ParseRole(rep.Role),
		Active: rep.Active,
	}, nil
}

// MarshalUser encodes a User as JSON through its representation.
func MarshalUser(u User) ([]byte, error) {
	return json.Marshal(ToRepresentation(u))
}

// UnmarshalUser decodes JSON produced by MarshalUser. Any decode failure or
// missing required field maps to ErrMalformedInput.
func UnmarshalUser(data []byte) (User, error) {
	var raw struct {
		ID     *int64  `json:"id"`
		Email  *string `json:"email"`
		Name   *string `json:"name"`
		Role   *string `json:"role"`
		Active *bool   `json:"active"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return User{}, ErrMalformedInput
	}
	if raw.ID == nil || raw.Email == nil || raw.Name == nil || raw.Role == nil || raw.Active == nil {
		return User{}, ErrMalformedInput
	}
	return FromRepresentation(Representation{
		ID:     *raw.ID,
		Email:  *raw.Email,
		Name:   *raw.Name,
		Role:   *raw.Role,
		Active: *raw.Active,
	})
}
