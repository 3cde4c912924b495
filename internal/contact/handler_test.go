package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/keithlinneman/ntek-web/internal/httpmw"
	"github.com/keithlinneman/ntek-web/internal/log"
	"github.com/keithlinneman/ntek-web/internal/mail"
)

type fakeSender struct {
	err  error
	sent []mail.Message
	// observed at send time
	ctxErr      error
	hasDeadline bool
}

func (f *fakeSender) Send(ctx context.Context, m mail.Message) error {
	f.ctxErr = ctx.Err()
	_, f.hasDeadline = ctx.Deadline()
	f.sent = append(f.sent, m)
	return f.err
}

type countRecorder map[string]int

func (c countRecorder) IncContact(result string) { c[result]++ }

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

const validBody = `{"name":"Ada","email":"ada@example.com","message":"I'd like a quote please."}`

func TestHandler_Sends(t *testing.T) {
	s := &fakeSender{}
	rec := countRecorder{}
	h := New(Options{Sender: s, From: "onboarding@resend.dev", Metrics: rec})

	w, resp := post(t, h, validBody)
	if w.Code != http.StatusOK || !resp.Success || resp.Message != "Message sent successfully!" {
		t.Fatalf("got %d %+v", w.Code, resp)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type = %q", ct)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent %d messages", len(s.sent))
	}
	m := s.sent[0]
	if m.From != "onboarding@resend.dev" || len(m.To) != 1 || m.To[0] != "onboarding@resend.dev" {
		t.Errorf("addresses: from=%q to=%v, want recipient to default to sender", m.From, m.To)
	}
	if m.Subject != "Contact Form: Ada" || m.ReplyTo != "ada@example.com" {
		t.Errorf("subject=%q reply_to=%q", m.Subject, m.ReplyTo)
	}
	if rec[ResultSent] != 1 {
		t.Errorf("metrics = %v", rec)
	}
}

func TestHandler_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		`{"name":"","email":"ada@example.com","message":"long enough text"}`: MsgNameRequired,
		`{"name":"Ada","email":"nope","message":"long enough text"}`:         MsgEmailInvalid,
		`{"name":"Ada","email":"ada@example.com","message":"short"}`:         MsgMessageLength,
		`{}`: MsgNameRequired,
	}
	for body, want := range cases {
		s := &fakeSender{}
		rec := countRecorder{}
		w, resp := post(t, New(Options{Sender: s, From: "a@b.co", Metrics: rec}), body)
		if w.Code != http.StatusBadRequest || resp.Success || resp.Message != want {
			t.Errorf("%s: got %d %+v, want 400 %q", body, w.Code, resp, want)
		}
		if len(s.sent) != 0 {
			t.Errorf("%s: mail sent for invalid input", body)
		}
		if rec[ResultInvalid] != 1 {
			t.Errorf("%s: metrics = %v", body, rec)
		}
	}
}

func TestHandler_MalformedJSON(t *testing.T) {
	w, resp := post(t, New(Options{Sender: &fakeSender{}, From: "a@b.co"}), `{"name":`)
	if w.Code != http.StatusBadRequest || resp.Message != "Invalid request body" {
		t.Fatalf("got %d %+v", w.Code, resp)
	}
}

func TestHandler_TrailingData(t *testing.T) {
	s := &fakeSender{}
	for _, body := range []string{
		validBody + `garbage`,
		validBody + validBody,
	} {
		w, resp := post(t, New(Options{Sender: s, From: "a@b.co"}), body)
		if w.Code != http.StatusBadRequest || resp.Message != "Invalid request body" {
			t.Fatalf("%q: got %d %+v", body, w.Code, resp)
		}
	}
	if len(s.sent) != 0 {
		t.Fatalf("sent %d messages for rejected bodies", len(s.sent))
	}

	w, resp := post(t, New(Options{Sender: s, From: "a@b.co"}), validBody+"\n")
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("trailing newline: got %d %+v", w.Code, resp)
	}
}

func TestHandler_BodyTooLarge(t *testing.T) {
	h := httpmw.MaxBody(MaxBodyBytes)(New(Options{Sender: &fakeSender{}, From: "a@b.co"}))
	body := `{"name":"Ada","email":"ada@example.com","message":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	w, resp := post(t, h, body)
	if w.Code != http.StatusRequestEntityTooLarge || resp.Success {
		t.Fatalf("got %d %+v", w.Code, resp)
	}
}

func TestHandler_SendFailure(t *testing.T) {
	rec := countRecorder{}
	h := New(Options{Sender: &fakeSender{err: errors.New("resend status 502")}, From: "a@b.co", Metrics: rec})

	w, resp := post(t, h, validBody)
	if w.Code != http.StatusInternalServerError || resp.Success || resp.Message != "Failed to send message. Please try again." {
		t.Fatalf("got %d %+v", w.Code, resp)
	}
	if strings.Contains(w.Body.String(), "502") {
		t.Fatal("provider error leaked to client")
	}
	if rec[ResultFailed] != 1 {
		t.Fatalf("metrics = %v", rec)
	}
}

func TestHandler_DeliveryDisabled(t *testing.T) {
	for name, h := range map[string]*Handler{
		"explicit": New(Options{Sender: mail.Disabled{}, From: "a@b.co"}),
		"default":  New(Options{From: "a@b.co"}),
	} {
		rec := countRecorder{}
		h.metrics = rec
		w, resp := post(t, h, validBody)
		if w.Code != http.StatusInternalServerError || resp.Success || resp.Message != "Failed to send message. Please try again." {
			t.Fatalf("%s: got %d %+v", name, w.Code, resp)
		}
		if rec[ResultFailed] != 1 || rec[ResultSent] != 0 {
			t.Fatalf("%s: metrics = %v", name, rec)
		}
	}
}

func TestHandler_DryRunSends(t *testing.T) {
	h := New(Options{Sender: mail.LogSender{L: log.Nop()}, From: "a@b.co"})
	w, resp := post(t, h, validBody)
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("got %d %+v", w.Code, resp)
	}
}

func TestHandler_SendSurvivesClientCancel(t *testing.T) {
	s := &fakeSender{}
	h := New(Options{Sender: s, From: "a@b.co", To: "team@ntek.app"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(validBody)).WithContext(ctx)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(s.sent) != 1 || s.sent[0].To[0] != "team@ntek.app" {
		t.Fatalf("sent = %+v", s.sent)
	}
	if s.ctxErr != nil {
		t.Fatalf("send context already done: %v", s.ctxErr)
	}
	if !s.hasDeadline {
		t.Fatal("send context has no deadline")
	}
}
