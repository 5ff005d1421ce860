package domain

import "errors"

// Input and state errors.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnknownAssignee   = errors.New("assignee does not exist")
	ErrConcurrentUpdate  = errors.New("task was modified concurrently")
)

// ErrIdempotencyInProgress means another create holding the same
// Idempotency-Key has not finished yet.
var ErrIdempotencyInProgress = errors.New("request with this idempotency key is in progress")

// Lookup errors.
var (
	ErrWorkOrderNotFound = errors.New("task not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("username or email already exists")
)

// Authentication and authorization errors. ErrInvalidCredentials is shared by
// unknown-email and wrong-password logins so callers cannot probe for accounts.
var (
	ErrMissingToken       = errors.New("no token provided")
	ErrMalformedToken     = errors.New("invalid token format")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrForbiddenRole      = errors.New("admin access required")
	ErrNotAllowed         = errors.New("not allowed")
)
