package notify

import (
	"context"
	"errors"
	"net/mail"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/ro"

	"github.com/omarluq/storefront/internal/ratelimit"
)

// ErrOutboxClosed is returned by SendEmail after Shutdown.
var ErrOutboxClosed = errors.New("notify: outbox closed")

const outboxSize = 64

// Outbox queues email and delivers it through another sender in the
// background. Each recipient gets at most perMinute messages; the rest are
// dropped.
type Outbox struct {
	next      EmailSender
	queue     chan Message
	done      chan struct{}
	log       zerolog.Logger
	delivered atomic.Int64
	mu        sync.RWMutex
	closed    bool
}

var _ EmailSender = (*Outbox)(nil)

func NewOutbox(next EmailSender, perMinute int, log zerolog.Logger) *Outbox {
	o := &Outbox{
		next:  next,
		queue: make(chan Message, outboxSize),
		done:  make(chan struct{}),
		log:   log,
	}
	limited := ratelimit.Limit(ro.FromChannel(o.queue), int64(perMinute), time.Minute,
		func(m Message) string { return m.To })
	go limited.Subscribe(ro.NewObserver(o.deliver, o.fail, func() { close(o.done) }))
	return o
}

func (o *Outbox) deliver(m Message) {
	if err := o.next.SendEmail(context.Background(), m.To, m.Subject, m.Body); err != nil {
		o.log.Warn().Err(err).Str("to", m.To).Msg("email delivery failed")
		return
	}
	o.delivered.Add(1)
}

func (o *Outbox) fail(err error) {
	o.log.Error().Err(err).Msg("outbox stopped")
	close(o.done)
}

// SendEmail validates the recipient and queues the message.
func (o *Outbox) SendEmail(ctx context.Context, to, subject, body string) error {
	if _, err := mail.ParseAddress(to); err != nil {
		return errors.Join(ErrInvalidAddress, err)
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrOutboxClosed
	}
	select {
	case o.queue <- Message{To: to, Subject: subject, Body: body}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delivered counts the messages handed to the underlying sender.
func (o *Outbox) Delivered() int64 {
	return o.delivered.Load()
}

// Shutdown stops accepting mail and waits for the queue to drain.
func (o *Outbox) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
