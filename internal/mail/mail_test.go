package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/keithlinneman/ntek-web/internal/log"
)

func TestInstrument(t *testing.T) {
	var calls []bool
	observe := func(sec float64, ok bool) {
		if sec < 0 {
			t.Errorf("negative duration %v", sec)
		}
		calls = append(calls, ok)
	}

	fail := errors.New("nope")
	s := Instrument(SenderFunc(func(context.Context, Message) error { return fail }), observe)
	if err := s.Send(context.Background(), Message{}); !errors.Is(err, fail) {
		t.Fatalf("err = %v", err)
	}
	s = Instrument(SenderFunc(func(context.Context, Message) error { return nil }), observe)
	if err := s.Send(context.Background(), Message{}); err != nil {
		t.Fatalf("err = %v", err)
	}
	if len(calls) != 2 || calls[0] || !calls[1] {
		t.Fatalf("calls = %v", calls)
	}
}

func TestInstrument_NilObserver(t *testing.T) {
	base := LogSender{L: log.Nop()}
	if got := Instrument(base, nil); got != Sender(base) {
		t.Fatal("nil observer should return the sender unchanged")
	}
}

func TestLogSender(t *testing.T) {
	if err := (LogSender{}).Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestDisabled(t *testing.T) {
	err := Disabled{}.Send(context.Background(), Message{Subject: "Contact Form: Ada"})
	if !errors.Is(err, ErrDeliveryDisabled) {
		t.Fatalf("err = %v, want ErrDeliveryDisabled", err)
	}
}
