// Package email sends transactional mail over SMTP. Delivery is best
// effort: callers treat a failed send the same as a failed in-app push.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers plain-text mail through a single SMTP endpoint.
type SMTPSender struct {
	addr     string
	from     string
	username string
	password string
}

func NewSMTPSender(addr, from, username, password string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{addr: addr, from: from, username: username, password: password}
}

// Send delivers one message. net/smtp does not take a context, so only a
// pre-cancelled context short-circuits here; the SMTP dialog itself runs to
// completion.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	host := s.addr
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, host)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n",
		s.from, to, subject, body)

	return smtp.SendMail(s.addr, auth, s.from, []string{to}, []byte(msg))
}
