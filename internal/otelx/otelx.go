// Package otelx installs the global tracer provider and propagators.
package otelx

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/keithlinneman/ntek-web/internal/xerrors"
)

// exporter dial bound; the collector is local
const dialTimeout = 3 * time.Second

type Options struct {
	Enabled  bool
	Endpoint string // host:port of an OTLP gRPC collector
	Insecure bool
	// Sample is the head sampling ratio for root spans, clamped to 0..1.
	// Child spans follow the parent decision.
	Sample    float64
	Service   string
	Component string
	Version   string
}

// ServiceName joins service and component, e.g. "ntek-web.server".
func (o Options) ServiceName() string {
	switch {
	case o.Service == "":
		return o.Component
	case o.Component == "":
		return o.Service
	}
	return o.Service + "." + o.Component
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func installPropagators() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
}

// Init sets the global tracer provider. When disabled an SDK provider with no
// exporter is installed so spans still carry ids for logs and response headers.
// The returned shutdown flushes pending spans and is safe to call more than once.
func Init(ctx context.Context, o Options) (func(context.Context) error, error) {
	installPropagators()

	if !o.Enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return onceShutdown(tp.Shutdown), nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(o.Endpoint)}
	if o.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	exp, err := otlptracegrpc.New(dialCtx, opts...)
	if err != nil {
		return onceShutdown(nil), xerrors.Wrapf(err, "otlp exporter %s", o.Endpoint)
	}

	// resource detection errors are partial; keep whatever was detected
	res, _ := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(o.ServiceName()),
			semconv.ServiceVersionKey.String(o.Version),
		),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(clampRatio(o.Sample)),
		)),
		sdktrace.WithBatcher(exp,
			sdktrace.WithMaxQueueSize(2048),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return onceShutdown(tp.Shutdown), nil
}

func onceShutdown(fn func(context.Context) error) func(context.Context) error {
	var once sync.Once
	return func(ctx context.Context) (err error) {
		once.Do(func() {
			if fn != nil {
				err = fn(ctx)
			}
		})
		return err
	}
}
