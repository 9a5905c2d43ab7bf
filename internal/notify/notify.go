// Package notify sends user notifications, either straight to the log or
// through a per-recipient throttled outbox.
package notify

import (
	"context"
	"errors"
	"net/mail"
	"sync"

	"github.com/rs/zerolog"
)

// ErrInvalidAddress is returned for a malformed recipient.
var ErrInvalidAddress = errors.New("notify: invalid email address")

// EmailSender delivers email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Message is a sent email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// LogEmailSender writes emails to the log instead of delivering them and
// keeps the last few for inspection.
type LogEmailSender struct {
	log  zerolog.Logger
	from string
	sent []Message
	mu   sync.Mutex
}

const keepSent = 32

var _ EmailSender = (*LogEmailSender)(nil)

func NewLogEmailSender(from string, log zerolog.Logger) *LogEmailSender {
	return &LogEmailSender{from: from, log: log}
}

func (s *LogEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return errors.Join(ErrInvalidAddress, err)
	}

	s.log.Info().
		Str("from", s.from).
		Str("to", to).
		Str("subject", subject).
		Int("body_len", len(body)).
		Msg("email sent")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, Message{From: s.from, To: to, Subject: subject, Body: body})
	if len(s.sent) > keepSent {
		s.sent = s.sent[len(s.sent)-keepSent:]
	}
	return nil
}

// Sent returns the retained messages, oldest first.
func (s *LogEmailSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
