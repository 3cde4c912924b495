package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/ntek-web/internal/xerrors"
)

// DefaultResendEndpoint is the Resend send-email API.
const DefaultResendEndpoint = "https://api.resend.com/emails"

// error bodies are truncated to this many bytes in returned errors
const maxErrorBody = 512

// APIError is returned when Resend answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("resend status %d: %s: %s", e.StatusCode, e.Name, e.Message)
	}
	return fmt.Sprintf("resend status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying later could succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type ResendSender struct {
	client   *http.Client
	endpoint string
	apiKey   string
	tracer   trace.Tracer
}

type ResendOption func(*ResendSender)

// WithEndpoint overrides the API URL, used by tests against httptest servers.
func WithEndpoint(u string) ResendOption {
	return func(s *ResendSender) {
		if u = strings.TrimSpace(u); u != "" {
			s.endpoint = u
		}
	}
}

// WithHTTPClient replaces the default client. Its transport is used as-is.
func WithHTTPClient(c *http.Client) ResendOption {
	return func(s *ResendSender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout sets the per-send timeout on the default client.
func WithTimeout(d time.Duration) ResendOption {
	return func(s *ResendSender) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// NewResend returns a sender authenticated with apiKey.
func NewResend(apiKey string, opts ...ResendOption) *ResendSender {
	s := &ResendSender{
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		endpoint: DefaultResendEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
		tracer:   otel.Tracer("ntek-web/mail"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (s *ResendSender) Send(ctx context.Context, m Message) (err error) {
	ctx, span := s.tracer.Start(ctx, "mail.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("mail.provider", "resend"),
			attribute.Int("mail.recipients", len(m.To)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "send failed")
		}
		span.End()
	}()

	if len(m.To) == 0 {
		return xerrors.New("mail has no recipients")
	}

	payload, err := json.Marshal(resendPayload{
		From:    m.From,
		To:      m.To,
		Subject: m.Subject,
		HTML:    m.HTML,
		ReplyTo: m.ReplyTo,
	})
	if err != nil {
		return xerrors.Wrap(err, "marshal resend payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return xerrors.Wrap(err, "build resend request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return xerrors.Wrap(err, "post resend")
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var re resendError
		if json.Unmarshal(body, &re) == nil && re.Message != "" {
			apiErr.Name, apiErr.Message = re.Name, re.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return xerrors.WithStack(apiErr)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}
