package otelx

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestServiceName(t *testing.T) {
	cases := []struct {
		o    Options
		want string
	}{
		{Options{Service: "ntek-web", Component: "server"}, "ntek-web.server"},
		{Options{Service: "ntek-web"}, "ntek-web"},
		{Options{Component: "server"}, "server"},
	}
	for _, c := range cases {
		if got := c.o.ServiceName(); got != c.want {
			t.Errorf("ServiceName(%+v) = %q, want %q", c.o, got, c.want)
		}
	}
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0: 0, 0.25: 0.25, 1: 1, 7: 1} {
		if got := clampRatio(in); got != want {
			t.Errorf("clampRatio(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_DisabledInstallsSDKProvider(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{Enabled: false, Sample: 99})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("provider = %T", otel.GetTracerProvider())
	}

	// spans carry ids even without an exporter
	_, span := otel.Tracer("ntek-web/test").Start(context.Background(), "contact.submit")
	if !span.SpanContext().IsValid() {
		t.Fatal("span context invalid")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestInit_PropagatesTraceparent(t *testing.T) {
	if _, err := Init(context.Background(), Options{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	ctx, span := otel.Tracer("ntek-web/test").Start(context.Background(), "outbound")
	defer span.End()

	h := http.Header{}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
	if h.Get("traceparent") == "" {
		t.Fatal("traceparent not injected")
	}
}

func TestInit_EnabledReturnsPromptly(t *testing.T) {
	start := time.Now()
	shutdown, err := Init(context.Background(), Options{
		Enabled:   true,
		Endpoint:  "127.0.0.1:1",
		Insecure:  true,
		Sample:    1,
		Service:   "ntek-web",
		Component: "test",
		Version:   "v0.0.0-test",
	})
	if elapsed := time.Since(start); elapsed > dialTimeout+2*time.Second {
		t.Fatalf("Init took %v", elapsed)
	}
	if shutdown == nil {
		t.Fatal("shutdown must never be nil")
	}
	if err != nil {
		return
	}
	// no collector is listening; shutdown may report a flush error but must return
	sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = shutdown(sctx)
}
