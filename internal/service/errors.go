package service

import "errors"

// Sentinel errors surfaced by the services. Handlers translate these to HTTP
// statuses at the boundary; raw store or provider errors never cross it.
var (
	ErrCharacterNotFound  = errors.New("character not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("caller does not own this session")
	ErrNotAMember         = errors.New("caller is not a member of this group")
	ErrEmptyMessage       = errors.New("message text must not be empty")
	ErrValidation         = errors.New("validation failed")
	ErrUserAlreadyExists  = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role")
)
