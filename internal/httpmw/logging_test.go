package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/keithlinneman/ntek-web/internal/log"
)

func TestWithLogger_InjectsRequestFields(t *testing.T) {
	spy := newSpyLogger()
	var fromCtx log.Logger
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fromCtx = log.FromContext(r.Context())
		}),
		RequestID(""),
		ClientIP,
		WithLogger(spy),
	)

	r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	r.RemoteAddr = "203.0.113.9:4000"
	h.ServeHTTP(httptest.NewRecorder(), r)

	if fromCtx != spy {
		t.Fatal("request logger not stored in context")
	}
	if v, _ := kvValue(spy.fields, "client.address"); v != "203.0.113.9" {
		t.Fatalf("client.address = %v", v)
	}
	if v, _ := kvValue(spy.fields, "url.path"); v != "/api/contact" {
		t.Fatalf("url.path = %v", v)
	}
	if v, _ := kvValue(spy.fields, "request_id"); v == "" {
		t.Fatal("request_id missing")
	}
}

func TestAccessLog_LogsStatusAndSize(t *testing.T) {
	spy := newSpyLogger()
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("slow down"))
		}),
		WithLogger(spy),
		AccessLog(),
	)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader("{}")))

	if len(spy.infos) != 1 || spy.infos[0].msg != "http request" {
		t.Fatalf("infos = %+v", spy.infos)
	}
	kv := spy.infos[0].kv
	if v, _ := kvValue(kv, "http.response.status_code"); v != http.StatusTooManyRequests {
		t.Errorf("status = %v", v)
	}
	if v, _ := kvValue(kv, "http.response.body.size"); v != int64(9) {
		t.Errorf("body size = %v", v)
	}
	if v, _ := kvValue(kv, "http.request.body.size"); v != int64(2) {
		t.Errorf("request size = %v", v)
	}
	if v, _ := kvValue(kv, "http.route"); v != "/api/contact" {
		t.Errorf("route = %v", v)
	}
}

func TestAccessLog_DefaultsStatus200(t *testing.T) {
	spy := newSpyLogger()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), WithLogger(spy), AccessLog())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if v, _ := kvValue(spy.infos[0].kv, "http.response.status_code"); v != http.StatusOK {
		t.Fatalf("status = %v, want 200", v)
	}
}

func TestAccessLog_SkipsAssetsAndHealth(t *testing.T) {
	spy := newSpyLogger()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), WithLogger(spy), AccessLog())

	for _, p := range []string{"/assets/index-abc.js", "/favicon.ico", "/-/healthy", "/-/ready", "/fonts/x.woff2"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	if len(spy.infos) != 0 {
		t.Fatalf("expected no access logs, got %d", len(spy.infos))
	}
}

func TestSchemeFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := schemeFromRequest(r); got != "http" {
		t.Fatalf("plain = %q", got)
	}
	r.Header.Set("X-Forwarded-Proto", "HTTPS, http")
	if got := schemeFromRequest(r); got != "https" {
		t.Fatalf("forwarded = %q", got)
	}
	r.Header.Set("X-Forwarded-Proto", "gopher")
	if got := schemeFromRequest(r); got != "http" {
		t.Fatalf("bogus forwarded = %q", got)
	}
}

func TestScope_AddsHandlerField(t *testing.T) {
	spy := newSpyLogger()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), WithLogger(spy), Scope("contact"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/contact", nil))

	if v, _ := kvValue(spy.fields, "handler"); v != "contact" {
		t.Fatalf("handler = %v", v)
	}
}
