package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ IdentityProvider = (*MemoryIdentityProvider)(nil)

type memoryUser struct {
	email    string
	password string
}

// MemoryIdentityProvider is an in-memory identity provider for tests and
// local runs. Passwords are kept in plain text.
type MemoryIdentityProvider struct {
	mutex       sync.Mutex
	users       map[string]memoryUser // uid -> user
	emails      map[string]string     // email -> uid
	sessions    map[string]Session    // token -> session
	resetTokens map[string]string     // reset token -> uid
	lastReset   map[string]string     // email -> last reset token

	// injected failures, returned by the matching calls when set
	CreateUserErr error
	DeleteUserErr error
	SignOutErr    error
	SendResetErr  error
}

func NewMemoryIdentityProvider() *MemoryIdentityProvider {
	return &MemoryIdentityProvider{
		users:       map[string]memoryUser{},
		emails:      map[string]string{},
		sessions:    map[string]Session{},
		resetTokens: map[string]string{},
		lastReset:   map[string]string{},
	}
}

func (p *MemoryIdentityProvider) CreateUser(_ context.Context, email, password string) (*Session, error) {
	if p.CreateUserErr != nil {
		return nil, p.CreateUserErr
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if _, taken := p.emails[email]; taken {
		return nil, ErrEmailInUse
	}
	uid := uuid.NewString()
	p.users[uid] = memoryUser{email: email, password: password}
	p.emails[email] = uid

	return p.openSession(uid, email), nil
}

func (p *MemoryIdentityProvider) SignIn(_ context.Context, email, password string) (*Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	uid, ok := p.emails[email]
	if !ok || p.users[uid].password != password {
		return nil, ErrInvalidCredentials
	}
	return p.openSession(uid, email), nil
}

func (p *MemoryIdentityProvider) openSession(uid, email string) *Session {
	session := Session{
		Token:     uuid.NewString(),
		UID:       uid,
		Email:     email,
		CreatedAt: time.Now(),
	}
	p.sessions[session.Token] = session
	return &session
}

func (p *MemoryIdentityProvider) SignOut(_ context.Context, token string) error {
	if p.SignOutErr != nil {
		return p.SignOutErr
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if _, ok := p.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(p.sessions, token)
	return nil
}

func (p *MemoryIdentityProvider) DeleteUser(_ context.Context, uid string) error {
	if p.DeleteUserErr != nil {
		return p.DeleteUserErr
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	user, ok := p.users[uid]
	if !ok {
		return ErrUserNotFound
	}
	delete(p.users, uid)
	delete(p.emails, user.email)
	for token, s := range p.sessions {
		if s.UID == uid {
			delete(p.sessions, token)
		}
	}
	return nil
}

func (p *MemoryIdentityProvider) SendPasswordReset(_ context.Context, email string) error {
	if p.SendResetErr != nil {
		return p.SendResetErr
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	uid, ok := p.emails[email]
	if !ok {
		return ErrUserNotFound
	}
	resetToken := uuid.NewString()
	p.resetTokens[resetToken] = uid
	p.lastReset[email] = resetToken
	return nil
}

func (p *MemoryIdentityProvider) ConfirmPasswordReset(_ context.Context, resetToken, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	uid, ok := p.resetTokens[resetToken]
	if !ok {
		return ErrInvalidResetToken
	}
	delete(p.resetTokens, resetToken)
	user := p.users[uid]
	user.password = newPassword
	p.users[uid] = user
	return nil
}

func (p *MemoryIdentityProvider) Lookup(_ context.Context, token string) (*Session, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	session, ok := p.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// LastResetToken returns the last reset token sent to email.
func (p *MemoryIdentityProvider) LastResetToken(email string) (string, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	token, ok := p.lastReset[email]
	return token, ok
}

// UserExists reports whether an identity for email exists.
func (p *MemoryIdentityProvider) UserExists(email string) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	_, ok := p.emails[email]
	return ok
}
