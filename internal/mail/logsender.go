package mail

import (
	"context"
	"errors"

	"github.com/keithlinneman/ntek-web/internal/log"
)

// ErrDeliveryDisabled is returned by senders that have no delivery backend.
var ErrDeliveryDisabled = errors.New("mail delivery disabled")

// Disabled is the sender used when no API key is available. Every Send
// fails so callers report the submission as not delivered.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) error { return ErrDeliveryDisabled }

// LogSender records messages in the log instead of delivering them. It is
// only wired for local development (-mail-dry-run).
// The HTML body is never logged since it carries submitter content.
type LogSender struct {
	L log.Logger
}

func (s LogSender) Send(ctx context.Context, m Message) error {
	L := s.L
	if L == nil {
		L = log.FromContext(ctx)
	}
	L.Warn(ctx, "mail dry run, message not sent",
		"mail.to", m.To,
		"mail.subject", m.Subject,
		"mail.html_bytes", len(m.HTML),
	)
	return nil
}
