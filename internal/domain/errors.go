package domain

import "errors"

var (
	// ErrInvalidUser indicates the entity failed local field validation.
	ErrInvalidUser = errors.New("invalid user")
	// ErrDuplicateEmail indicates another record already holds the email
	// (case-insensitive, active or not).
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound indicates no record matches the given id or email.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials is the single authentication failure value.
	// Unknown account and wrong password are indistinguishable through it.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakCredential indicates the plaintext fails the password policy.
	ErrWeakCredential = errors.New("password must be at least 8 characters")
	// ErrMalformedInput indicates a wire representation could not be decoded.
	ErrMalformedInput = errors.New("malformed user representation")
)
