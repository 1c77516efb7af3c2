// Package mail sends account email over SMTP.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"text/template"

	"github.com/abimbolaoige/KFM-Counsel-Chat/config"
)

// ErrNotConfigured is returned when no SMTP host or sender address is set.
var ErrNotConfigured = errors.New("mail: not configured")

var resetTemplate = template.Must(template.New("reset").Parse(`Hello {{.Name}},

We received a request to reset the password for your KFM Counsel account.
Open the link below within the hour to choose a new password:

{{.Link}}

If you did not ask for this, you can ignore this email.
`))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender delivers mail through a single SMTP relay.
type Sender struct {
	cfg  config.Mail
	auth smtp.Auth
	send sendFunc
}

// NewSender creates a sender for cfg.
func NewSender(cfg config.Mail) *Sender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Sender{cfg: cfg, auth: auth, send: smtp.SendMail}
}

// Configured reports whether a relay and sender address are set.
func (s *Sender) Configured() bool {
	return s.cfg.Host != "" && s.cfg.From != ""
}

// SendPasswordReset mails the reset link to the account holder.
func (s *Sender) SendPasswordReset(ctx context.Context, to, name, link string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct{ Name, Link string }{name, link}); err != nil {
		return fmt.Errorf("mail: render reset message: %w", err)
	}
	msg := s.message(to, "Reset your KFM Counsel password", body.String())
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, s.auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("mail: send to %s: %w", addr, err)
	}
	return nil
}

func (s *Sender) message(to, subject, body string) []byte {
	from := s.cfg.From
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)
	return msg.Bytes()
}
