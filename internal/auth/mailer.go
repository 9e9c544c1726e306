package auth

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = (*LogMailer)(nil)
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, email, resetToken string) error
}

type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	// resetURL gets the reset token appended, e.g. https://pushpullrun.app/reset?token=
	resetURL string
	// ability to inject the send func (for unit testing)
	SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type NewSMTPMailerParams struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ResetURL string
}

func NewSMTPMailer(params NewSMTPMailerParams) *SMTPMailer {
	return &SMTPMailer{
		host:         params.Host,
		port:         params.Port,
		username:     params.Username,
		password:     params.Password,
		from:         params.From,
		resetURL:     params.ResetURL,
		SendMailFunc: smtp.SendMail,
	}
}

// SendPasswordReset sends the reset link. net/smtp has no context support,
// ctx is not honored once the dial started.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, resetToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Someone asked to reset the password of your PushPullRun account.\r\n\r\n"+
			"Reset it here: %s%s\r\n\r\n"+
			"The link expires in one hour. If it was not you, ignore this email.",
		m.resetURL, resetToken,
	)
	msg := buildMessage(m.from, email, "Reset your PushPullRun password", body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var smtpAuth smtp.Auth
	if m.username != "" {
		smtpAuth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := m.SendMailFunc(addr, smtpAuth, m.from, []string{email}, []byte(msg)); err != nil {
		log.Errorf("send password reset email to %s: %s", email, err)
		return fmt.Errorf("send mail: %w", err)
	}

	log.Debugf("password reset email sent to %s", email)
	return nil
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

// LogMailer only logs the reset token, used in development.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(_ context.Context, email, resetToken string) error {
	log.Warnf("password reset requested for %s, token: %s", email, resetToken)
	return nil
}
