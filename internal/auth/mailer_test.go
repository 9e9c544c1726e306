package auth

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_SendPasswordReset(t *testing.T) {
	mailer := NewSMTPMailer(NewSMTPMailerParams{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer",
		Password: "mailer-pass",
		From:     "no-reply@pushpullrun.app",
		ResetURL: "https://pushpullrun.app/reset?token=",
	})

	var (
		gotAddr string
		gotAuth smtp.Auth
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	mailer.SendMailFunc = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	require.NoError(t, mailer.SendPasswordReset(context.Background(), "serj@example.com", "reset-123"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "no-reply@pushpullrun.app", gotFrom)
	assert.Equal(t, []string{"serj@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: serj@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: Reset your PushPullRun password\r\n")
	assert.Contains(t, gotMsg, "https://pushpullrun.app/reset?token=reset-123")
}

func TestSMTPMailer_Errors(t *testing.T) {
	mailer := NewSMTPMailer(NewSMTPMailerParams{Host: "localhost", Port: 25})
	mailer.SendMailFunc = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Nil(t, a)
		return errors.New("554 rejected")
	}

	err := mailer.SendPasswordReset(context.Background(), "serj@example.com", "reset-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "554 rejected")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mailer.SendPasswordReset(ctx, "serj@example.com", "reset-123"), context.Canceled)
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.SendPasswordReset(context.Background(), "serj@example.com", "reset-123"))
}
