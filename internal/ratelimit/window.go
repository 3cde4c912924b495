package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/keithlinneman/ntek-web/internal/httpmw"
)

// UnknownClient is the bucket used when no client identity could be resolved.
// Every such caller shares one quota.
const UnknownClient = "unknown"

const (
	defaultWindow        = 15 * time.Minute
	defaultMax           = 5
	defaultSweepInterval = 10 * time.Minute
	defaultMessage       = "Too many contact requests from this IP, please try again after 15 minutes."
)

// window is the per-client state for the current fixed window
type window struct {
	count   int
	resetAt time.Time
	// logged tracks whether the first-denial hook already fired for this window
	logged bool
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed bool
	// Count is the number of requests observed in the current window, including this one.
	// It keeps growing past the limit while a client is being rejected.
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before the window rolls over,
// rounded up to whole seconds and never less than one second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return ((wait + time.Second - 1) / time.Second) * time.Second
}

// WindowLimiter admits at most max requests per client within a fixed window
// that starts on the client's first request. Expired windows are reclaimed by
// a periodic sweep that runs until the context passed to NewWindow is done.
type WindowLimiter struct {
	mu      sync.Mutex
	clients map[string]*window

	window        time.Duration
	max           int
	message       string
	sweepInterval time.Duration
	now           func() time.Time

	onDenied      func(clientID string)
	onFirstDenied func(clientID string, d Decision)
	onSweep       func(removed, remaining int)
}

type WindowOption func(*WindowLimiter)

// WithWindow sets the window length. Non-positive values are ignored.
func WithWindow(d time.Duration) WindowOption {
	return func(l *WindowLimiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithMax sets how many requests a client may make per window. Values below 1 are ignored.
func WithMax(n int) WindowOption {
	return func(l *WindowLimiter) {
		if n > 0 {
			l.max = n
		}
	}
}

// WithMessage sets the message returned in the 429 body.
func WithMessage(msg string) WindowOption {
	return func(l *WindowLimiter) {
		if msg != "" {
			l.message = msg
		}
	}
}

// WithSweepInterval controls how often expired windows are removed.
func WithSweepInterval(d time.Duration) WindowOption {
	return func(l *WindowLimiter) {
		if d > 0 {
			l.sweepInterval = d
		}
	}
}

// WithClock replaces time.Now, used by tests to move time without sleeping
func WithClock(now func() time.Time) WindowOption {
	return func(l *WindowLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithWindowOnDenied is called for every rejected request, outside the lock.
func WithWindowOnDenied(fn func(clientID string)) WindowOption {
	return func(l *WindowLimiter) {
		l.onDenied = fn
	}
}

// WithWindowOnFirstDenied is called once per client window on the first rejection, used for logging.
func WithWindowOnFirstDenied(fn func(clientID string, d Decision)) WindowOption {
	return func(l *WindowLimiter) {
		l.onFirstDenied = fn
	}
}

// WithOnSweep is called after every sweep with the number of removed and remaining entries
func WithOnSweep(fn func(removed, remaining int)) WindowOption {
	return func(l *WindowLimiter) {
		l.onSweep = fn
	}
}

// NewWindow creates a WindowLimiter and starts its sweep goroutine.
// The goroutine exits when ctx is cancelled.
func NewWindow(ctx context.Context, opts ...WindowOption) *WindowLimiter {
	l := &WindowLimiter{
		clients:       make(map[string]*window),
		window:        defaultWindow,
		max:           defaultMax,
		message:       defaultMessage,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	go l.sweepLoop(ctx)
	return l
}

// Message returns the configured rejection message.
func (l *WindowLimiter) Message() string { return l.message }

// Limit returns the configured max requests per window.
func (l *WindowLimiter) Limit() int { return l.max }

// Window returns the configured window length.
func (l *WindowLimiter) Window() time.Duration { return l.window }

// Allow records a request for clientID and reports whether it is within the limit.
// The lookup, reset and increment happen under one lock so concurrent requests
// from the same client can never both take the last slot.
func (l *WindowLimiter) Allow(clientID string) Decision {
	if clientID == "" {
		clientID = UnknownClient
	}

	l.mu.Lock()
	now := l.now()
	w, ok := l.clients[clientID]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.clients[clientID] = w
	}
	w.count++

	d := Decision{
		Allowed: w.count <= l.max,
		Count:   w.count,
		Limit:   l.max,
		ResetAt: w.resetAt,
	}
	if d.Allowed {
		d.Remaining = l.max - w.count
	}

	first := false
	if !d.Allowed && !w.logged {
		w.logged = true
		first = true
	}
	l.mu.Unlock()

	if d.Allowed {
		return d
	}
	// hooks run without the lock held, they may log or touch metrics
	if first && l.onFirstDenied != nil {
		l.onFirstDenied(clientID, d)
	}
	if l.onDenied != nil {
		l.onDenied(clientID)
	}
	return d
}

// Sweep removes every client whose window has expired and returns how many were removed.
func (l *WindowLimiter) Sweep() int {
	l.mu.Lock()
	now := l.now()
	removed := 0
	for id, w := range l.clients {
		if now.After(w.resetAt) {
			delete(l.clients, id)
			removed++
		}
	}
	remaining := len(l.clients)
	l.mu.Unlock()

	if l.onSweep != nil {
		l.onSweep(removed, remaining)
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *WindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *WindowLimiter) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

type rejection struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Middleware rejects clients over their window quota with 429 and a JSON body
// carrying the configured message. Allowed requests pass through to next.
func (l *WindowLimiter) Middleware(next http.Handler) http.Handler {
	body, _ := json.Marshal(rejection{Success: false, Message: l.message})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := httpmw.ClientIPFromContext(r.Context())
		d := l.Allow(id)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retry := d.RetryAfter(l.now())
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write(body)
			return
		}

		next.ServeHTTP(w, r)
	})
}
