package notify

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEmailSender(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	s := NewLogEmailSender("shop@example.com", zerolog.New(&buf))

	require.NoError(t, s.SendEmail(context.Background(), "alice@example.com", "Order 1", "thanks"))
	assert.Contains(t, buf.String(), `"to":"alice@example.com"`)

	sent := s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, Message{From: "shop@example.com", To: "alice@example.com", Subject: "Order 1", Body: "thanks"}, sent[0])
}

func TestLogEmailSenderRejectsBadAddress(t *testing.T) {
	t.Parallel()
	s := NewLogEmailSender("shop@example.com", zerolog.Nop())
	assert.ErrorIs(t, s.SendEmail(context.Background(), "not an address", "x", "y"), ErrInvalidAddress)
	assert.Empty(t, s.Sent())
}

func TestLogEmailSenderKeepsRecent(t *testing.T) {
	t.Parallel()
	s := NewLogEmailSender("shop@example.com", zerolog.Nop())
	for i := range keepSent + 5 {
		require.NoError(t, s.SendEmail(context.Background(), "a@example.com", fmt.Sprint(i), ""))
	}
	sent := s.Sent()
	require.Len(t, sent, keepSent)
	assert.Equal(t, "5", sent[0].Subject)
}
