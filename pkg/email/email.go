// Package email sends plain-text mail through interchangeable backends.
package email

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
)

// Message is one outgoing mail.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Backend delivers a Message through one provider.
type Backend interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, msg Message) error
}

// ValidateAddress rejects addresses net/mail cannot parse.
func ValidateAddress(addr string) error {
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("invalid email address %q: %w", addr, err)
	}
	return nil
}

// SMTP sends through a plain-auth SMTP relay.
type SMTP struct {
	Server   string
	Port     int
	Username string
	Password string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(server string, port int, username, password string) *SMTP {
	return &SMTP{Server: server, Port: port, Username: username, Password: password, send: smtp.SendMail}
}

func (s *SMTP) Name() string { return "smtp" }

func (s *SMTP) Configured() bool { return s.Server != "" && s.Port != 0 }

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := msg.From
	if from == "" {
		from = s.Username
	}
	raw := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n"+
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		headerValue(from), headerValue(msg.To), mime.QEncoding.Encode("utf-8", msg.Subject), msg.Body))

	var auth smtp.Auth
	if s.Username != "" && s.Password != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Server)
	}
	addr := fmt.Sprintf("%s:%d", s.Server, s.Port)
	if err := s.send(addr, auth, from, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", msg.To, err)
	}
	return nil
}

var headerBreaks = strings.NewReplacer("\r", "", "\n", "")

// headerValue drops line breaks so a value cannot start a new header.
func headerValue(v string) string {
	return headerBreaks.Replace(v)
}

// Failover tries its backends in order until one delivers.
type Failover struct {
	backends []Backend
}

// NewFailover keeps only configured backends, preserving order.
func NewFailover(backends ...Backend) *Failover {
	f := &Failover{}
	for _, b := range backends {
		if b != nil && b.Configured() {
			f.backends = append(f.backends, b)
		}
	}
	return f
}

// Names lists the active backends in the order they are tried.
func (f *Failover) Names() []string {
	names := make([]string, 0, len(f.backends))
	for _, b := range f.backends {
		names = append(names, b.Name())
	}
	return names
}

func (f *Failover) Send(ctx context.Context, msg Message) error {
	if len(f.backends) == 0 {
		return errors.New("no configured email backend")
	}
	var errs []error
	for _, b := range f.backends {
		err := b.Send(ctx, msg)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}
