package tracing

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	otbridge "go.opentelemetry.io/otel/bridge/opentracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const shutdownTimeout = 5 * time.Second

// newOTLP builds an OpenTelemetry pipeline exporting over OTLP/gRPC and
// returns it behind the opentracing bridge. The gRPC connection is made in
// the background, so a collector that is down does not fail startup.
func newOTLP(c Config, logger *slog.Logger) (opentracing.Tracer, io.Closer, error) {
	target, insecure := otlpTarget(c.Endpoint)
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(context.Background(), opts...)
	if err != nil {
		return nil, nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRate))),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceNameKey.String(c.ServiceName),
		)),
	)

	bridge, _ := otbridge.NewTracerPair(provider.Tracer("github.com/jacentio/flexdb"))
	bridge.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	bridge.SetWarningHandler(func(msg string) {
		logger.Warn("otel bridge: " + msg)
	})
	return bridge, &otlpCloser{provider: provider}, nil
}

// otlpTarget turns a collector URI into the host:port gRPC dials and
// whether the connection is plaintext. A bare host:port is plaintext.
func otlpTarget(endpoint string) (string, bool) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, true
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint, true
	}
	return u.Host, u.Scheme != "https"
}

// otlpCloser flushes and stops the provider.
type otlpCloser struct {
	provider *sdktrace.TracerProvider
}

func (c *otlpCloser) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return c.provider.Shutdown(ctx)
}
