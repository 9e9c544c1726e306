package auth

//go:generate mockgen -source=$GOFILE -destination=identity_mocks_test.go -package=auth_test

import (
	"context"
	"net/mail"
	"strings"
	"time"
)

const (
	DefaultTTL  = 24 * 7 * time.Hour
	tokenLength = 35
)

// Session is an authenticated identity. UID partitions the user's data in the store.
type Session struct {
	Token     string    `json:"token"`
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// IdentityProvider is the email+password identity backend.
type IdentityProvider interface {
	// CreateUser creates the identity and opens a session for it.
	CreateUser(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	DeleteUser(ctx context.Context, uid string) error
	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error
	Lookup(ctx context.Context, token string) (*Session, error)
}

// NormalizeEmail lowercases and trims the address and checks it is a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
