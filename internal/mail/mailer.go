// Package mail delivers transactional email (currently only the address
// verification message). The services layer depends on the Mailer interface
// so tests and dev setups can swap in the log-only implementation.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tenwords/go-words-backend/internal/config"
)

// Mailer sends the verification message for a freshly registered account.
// Implementations must be safe for concurrent use.
type Mailer interface {
	// SendVerification emails the confirmation link to the given address.
	SendVerification(ctx context.Context, to, displayName, verifyURL string) error
}

// New selects a Mailer for the given SMTP configuration: an SMTPMailer when
// a host is configured, otherwise the log-only mailer.
func New(cfg config.SMTPConfig) Mailer {
	if strings.TrimSpace(cfg.Host) == "" {
		return LogMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer delivers mail through a plain SMTP relay using AUTH PLAIN when
// credentials are configured.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// SendVerification sends the confirmation message. Delivery failures are
// returned to the caller; the account service logs them and keeps the
// registration (the user can request a resend by registering support flow).
func (m *SMTPMailer) SendVerification(ctx context.Context, to, displayName, verifyURL string) error {
	msg := buildVerificationMessage(m.cfg.From, to, displayName, verifyURL)

	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	// smtp.SendMail has no context hook; honor cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(addr, a, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

// LogMailer writes the verification link to the application log instead of
// sending mail. Used in dev and tests where no relay is available.
type LogMailer struct{}

// SendVerification logs the link at INFO level and always succeeds.
func (LogMailer) SendVerification(_ context.Context, to, displayName, verifyURL string) error {
	log.Info().
		Str("to", to).
		Str("display_name", displayName).
		Str("verify_url", verifyURL).
		Msg("verification mail (log-only mailer)")
	return nil
}

// buildVerificationMessage renders the RFC 5322 message bytes.
func buildVerificationMessage(from, to, displayName, verifyURL string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: Ten Words <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Confirm your Ten Words account\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", displayName)
	b.WriteString("Welcome to Ten Words. Confirm your email address to activate your account:\r\n\r\n")
	fmt.Fprintf(&b, "  %s\r\n\r\n", verifyURL)
	b.WriteString("If you did not create this account, ignore this message.\r\n")
	return []byte(b.String())
}
