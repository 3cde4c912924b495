package contact

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/ntek-web/internal/log"
	"github.com/keithlinneman/ntek-web/internal/mail"
)

// MaxBodyBytes caps the contact form request body.
const MaxBodyBytes = 16 << 10

const (
	msgSent         = "Message sent successfully!"
	msgFailed       = "Failed to send message. Please try again."
	msgBadBody      = "Invalid request body"
	msgBodyTooLarge = "Request body too large"
)

// Result labels passed to Recorder.
const (
	ResultSent    = "sent"
	ResultInvalid = "invalid"
	ResultFailed  = "failed"
)

// Recorder counts submissions by result. *metrics.ServerMetrics satisfies it.
type Recorder interface {
	IncContact(result string)
}

type Options struct {
	Sender mail.Sender
	From   string
	To     string
	// SendTimeout bounds a single delivery attempt, detached from client disconnects
	SendTimeout time.Duration
	Metrics     Recorder
}

type Handler struct {
	sender      mail.Sender
	from        string
	to          string
	sendTimeout time.Duration
	metrics     Recorder
}

// New returns the POST /api/contact handler.
func New(opts Options) *Handler {
	h := &Handler{
		sender:      opts.Sender,
		from:        opts.From,
		to:          opts.To,
		sendTimeout: opts.SendTimeout,
		metrics:     opts.Metrics,
	}
	if h.sender == nil {
		h.sender = mail.Disabled{}
	}
	if h.to == "" {
		h.to = h.from
	}
	if h.sendTimeout <= 0 {
		h.sendTimeout = 15 * time.Second
	}
	return h
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	L := log.FromContext(ctx)
	span := trace.SpanFromContext(ctx)

	sub, err := decodeSubmission(r.Body)
	if err != nil {
		h.record(ResultInvalid)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, response{Message: msgBodyTooLarge})
			return
		}
		L.Info(ctx, "contact form rejected", "reason", "malformed body", "err", err.Error())
		writeJSON(w, http.StatusBadRequest, response{Message: msgBadBody})
		return
	}

	if err := sub.Validate(); err != nil {
		h.record(ResultInvalid)
		msg, field := msgBadBody, ""
		var ve *ValidationError
		if errors.As(err, &ve) {
			msg, field = ve.Message, ve.Field
			span.SetAttributes(attribute.String("contact.invalid_field", field))
		}
		L.Info(ctx, "contact form rejected", "reason", "validation", "field", field)
		writeJSON(w, http.StatusBadRequest, response{Message: msg})
		return
	}

	// keep trace and logger values but not cancellation: a client hanging up
	// mid-send must not abort delivery
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.sendTimeout)
	defer cancel()

	err = h.sender.Send(sendCtx, mail.Message{
		From:    h.from,
		To:      []string{h.to},
		Subject: sub.Subject(),
		HTML:    sub.HTML(),
		ReplyTo: strings.TrimSpace(sub.Email),
	})
	if err != nil {
		h.record(ResultFailed)
		if errors.Is(err, mail.ErrDeliveryDisabled) {
			span.SetAttributes(attribute.Bool("contact.delivery_disabled", true))
		}
		L.Error(ctx, err, "contact form error")
		writeJSON(w, http.StatusInternalServerError, response{Message: msgFailed})
		return
	}

	h.record(ResultSent)
	L.Info(ctx, "contact form sent", "message_chars", len([]rune(sub.Message)))
	writeJSON(w, http.StatusOK, response{Success: true, Message: msgSent})
}

var errTrailingData = errors.New("unexpected data after JSON object")

// decodeSubmission reads exactly one JSON value from body.
func decodeSubmission(body io.Reader) (Submission, error) {
	var sub Submission
	dec := json.NewDecoder(body)
	if err := dec.Decode(&sub); err != nil {
		return Submission{}, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Submission{}, err
		}
		return Submission{}, errTrailingData
	}
	return sub, nil
}

func (h *Handler) record(result string) {
	if h.metrics != nil {
		h.metrics.IncContact(result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
