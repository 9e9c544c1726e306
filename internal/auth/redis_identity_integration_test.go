//go:build integration_test || all_tests

package auth

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/2beens/pushpullrun/pkg/testing"
)

func TestRedisIdentityProvider_Integration(t *testing.T) {
	ctx, rdb := testingpkg.GetRedisClientAndCtx(t)

	mailer := &recordingMailer{}
	p := NewRedisIdentityProvider(time.Hour, rdb, mailer)
	now := time.Now()
	p.NowFunc = func() time.Time {
		return now
	}

	email := gofakeit.Email()
	created, err := p.CreateUser(ctx, email, "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, created.Token)

	_, err = p.CreateUser(ctx, email, "secret2")
	assert.ErrorIs(t, err, ErrEmailInUse)

	_, err = p.SignIn(ctx, email, "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	signedIn, err := p.SignIn(ctx, email, "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.UID, signedIn.UID)
	assert.NotEqual(t, created.Token, signedIn.Token)

	looked, err := p.Lookup(ctx, signedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, created.UID, looked.UID)

	require.NoError(t, p.SignOut(ctx, created.Token))
	_, err = p.Lookup(ctx, created.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// reset flow
	require.NoError(t, p.SendPasswordReset(ctx, email))
	require.Equal(t, email, mailer.email)
	require.NotEmpty(t, mailer.resetToken)
	require.NoError(t, p.ConfirmPasswordReset(ctx, mailer.resetToken, "secret3"))
	assert.ErrorIs(t, p.ConfirmPasswordReset(ctx, mailer.resetToken, "secret4"), ErrInvalidResetToken)

	_, err = p.SignIn(ctx, email, "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.SignIn(ctx, email, "secret3")
	require.NoError(t, err)

	// everything opened so far expires
	now = now.Add(2 * time.Hour)
	assert.GreaterOrEqual(t, p.ScanAndClean(ctx), 2)
	_, err = p.Lookup(ctx, signedIn.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
