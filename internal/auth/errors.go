package auth

import (
	"errors"
	"fmt"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoSession          = errors.New("no user logged in")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

const minPasswordLength = 6

// AuthError is returned by every auth flow. Err is either one of the
// sentinel errors above or the error of the underlying store/provider.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

func authErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *AuthError
	if errors.As(err, &existing) {
		return err
	}
	return &AuthError{Op: op, Err: err}
}
