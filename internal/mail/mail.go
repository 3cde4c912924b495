package mail

import (
	"context"
	"time"
)

// Message is a single outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// Sender hands a message to a delivery backend.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SenderFunc adapts a function into a Sender.
type SenderFunc func(ctx context.Context, m Message) error

func (f SenderFunc) Send(ctx context.Context, m Message) error { return f(ctx, m) }

// Instrument calls observe with the elapsed seconds and outcome of every Send.
func Instrument(s Sender, observe func(seconds float64, ok bool)) Sender {
	if observe == nil {
		return s
	}
	return SenderFunc(func(ctx context.Context, m Message) error {
		start := time.Now()
		err := s.Send(ctx, m)
		observe(time.Since(start).Seconds(), err == nil)
		return err
	})
}
