package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushpullrun/internal/fitness"
	"github.com/2beens/pushpullrun/internal/store"
	"github.com/2beens/pushpullrun/internal/telemetry/tracing"
)

// ProfileStore is the part of the store the auth flows need.
type ProfileStore interface {
	SaveProfile(ctx context.Context, profile fitness.UserProfile, userID string) error
	FetchProfile(ctx context.Context, userID string) (*fitness.UserProfile, error)
}

var _ ProfileStore = (*store.Adapter)(nil)

// Service runs the sign up/in flows that span the identity provider and the
// profile store. It keeps no session state, see Manager for that.
type Service struct {
	identity IdentityProvider
	profiles ProfileStore
	// ability to inject the clock (for unit testing)
	NowFunc func() time.Time
}

func NewService(identity IdentityProvider, profiles ProfileStore) *Service {
	return &Service{
		identity: identity,
		profiles: profiles,
		NowFunc:  time.Now,
	}
}

// SignUp creates the identity and its profile. If the profile cannot be
// saved, the new identity is deleted again so the email can be reused.
func (s *Service) SignUp(ctx context.Context, email, password, username string) (_ *Session, _ *fitness.UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.signUp")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.identity.CreateUser(ctx, email, password)
	if err != nil {
		return nil, nil, authErr("sign up", err)
	}
	span.SetAttributes(attribute.String("user.id", session.UID))

	if username == "" {
		username = fitness.UsernameFromEmail(session.Email)
	}
	profile := fitness.NewUserProfile(username, session.Email, s.NowFunc())
	if err := s.profiles.SaveProfile(ctx, profile, session.UID); err != nil {
		if delErr := s.identity.DeleteUser(ctx, session.UID); delErr != nil {
			log.Errorf("sign up %s: delete identity after failed profile save: %s", session.UID, delErr)
		}
		return nil, nil, fmt.Errorf("sign up: save profile: %w", err)
	}

	log.Debugf("user %s signed up", session.UID)
	return session, &profile, nil
}

// SignIn authenticates and returns the user's profile, creating a default
// one when the profile document is missing.
func (s *Service) SignIn(ctx context.Context, email, password string) (_ *Session, _ *fitness.UserProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.signIn")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, authErr("sign in", err)
	}
	span.SetAttributes(attribute.String("user.id", session.UID))

	profile, err := s.EnsureProfile(ctx, session.UID, session.Email)
	if err != nil {
		if signOutErr := s.identity.SignOut(ctx, session.Token); signOutErr != nil {
			log.Errorf("sign in %s: revoke session after profile error: %s", session.UID, signOutErr)
		}
		return nil, nil, fmt.Errorf("sign in: %w", err)
	}

	return session, profile, nil
}

// EnsureProfile fetches the user's profile and saves a default one if there is none.
func (s *Service) EnsureProfile(ctx context.Context, uid, email string) (*fitness.UserProfile, error) {
	profile, err := s.profiles.FetchProfile(ctx, uid)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	defaultProfile := fitness.DefaultProfile(email, s.NowFunc())
	if err := s.profiles.SaveProfile(ctx, defaultProfile, uid); err != nil {
		return nil, fmt.Errorf("save default profile: %w", err)
	}
	log.Infof("user %s had no profile, created default one", uid)

	return &defaultProfile, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	return authErr("sign out", s.identity.SignOut(ctx, token))
}

// ResetPassword succeeds once the reset email is queued.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	return authErr("reset password", s.identity.SendPasswordReset(ctx, email))
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	return authErr("confirm password reset", s.identity.ConfirmPasswordReset(ctx, resetToken, newPassword))
}

func (s *Service) Lookup(ctx context.Context, token string) (*Session, error) {
	session, err := s.identity.Lookup(ctx, token)
	if err != nil {
		return nil, authErr("lookup session", err)
	}
	return session, nil
}
