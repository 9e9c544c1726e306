package auth

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/pushpullrun/internal/fitness"
)

// Manager holds the session of the single signed in user of a client.
type Manager struct {
	service *Service

	mutex   sync.RWMutex
	session *Session
}

func NewManager(service *Service) *Manager {
	return &Manager{
		service: service,
	}
}

func (m *Manager) setSession(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.session = session
}

func (m *Manager) SignUp(ctx context.Context, email, password, username string) (*fitness.UserProfile, error) {
	session, profile, err := m.service.SignUp(ctx, email, password, username)
	if err != nil {
		return nil, err
	}
	m.setSession(session)
	return profile, nil
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (*fitness.UserProfile, error) {
	session, profile, err := m.service.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	m.setSession(session)
	return profile, nil
}

// Resume restores a session from its token, e.g. one persisted by a previous run.
func (m *Manager) Resume(ctx context.Context, token string) (*fitness.UserProfile, error) {
	session, err := m.service.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	profile, err := m.service.EnsureProfile(ctx, session.UID, session.Email)
	if err != nil {
		return nil, err
	}
	m.setSession(session)
	return profile, nil
}

// SignOut revokes the session and forgets it. If the provider could not
// revoke it, the session is kept and the error returned.
func (m *Manager) SignOut(ctx context.Context) error {
	session, ok := m.Session()
	if !ok {
		return nil
	}

	if err := m.service.SignOut(ctx, session.Token); err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return err
		}
		log.Debugf("sign out %s: session already gone", session.UID)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.session != nil && m.session.Token == session.Token {
		m.session = nil
	}
	return nil
}

func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	return m.service.ResetPassword(ctx, email)
}

// CurrentUserID returns the uid of the signed in user.
func (m *Manager) CurrentUserID() (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.session == nil {
		return "", false
	}
	return m.session.UID, true
}

// Session returns a copy of the current session.
func (m *Manager) Session() (Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}
