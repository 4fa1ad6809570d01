// Package tracing configures the opentracing tracer used by the HTTP layer
// and the store. Spans are exported over OTLP through the OpenTelemetry
// SDK, or to a Jaeger collector.
package tracing

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// Exporters.
const (
	ExporterOTLP   = "otlp"
	ExporterJaeger = "jaeger"
)

// Default collector endpoints per exporter.
const (
	DefaultOTLPEndpoint   = "http://localhost:4317"
	DefaultJaegerEndpoint = "http://localhost:14268/api/traces"
)

// ErrUnknownExporter is returned for an exporter other than otlp or jaeger.
var ErrUnknownExporter = errors.New("flexdb: unknown trace exporter")

// Config holds tracing configuration.
type Config struct {
	// Enabled turns span export on. When false a no-op tracer is used.
	Enabled bool

	// ServiceName is reported with every span.
	// Default: "webapi"
	ServiceName string

	// Exporter is "otlp" (gRPC) or "jaeger".
	// Default: "otlp"
	Exporter string

	// Endpoint is the collector URI spans are sent to, e.g.
	// "http://localhost:4317" for OTLP or
	// "http://localhost:14268/api/traces" for Jaeger.
	Endpoint string

	// SampleRate is the fraction of traces kept, between 0 and 1.
	// Default: 1
	SampleRate float64
}

// DefaultConfig returns tracing disabled with sensible defaults for when it
// is turned on.
func DefaultConfig() Config {
	return Config{
		ServiceName: "webapi",
		Exporter:    ExporterOTLP,
		Endpoint:    DefaultOTLPEndpoint,
		SampleRate:  1,
	}
}

// Validate fills defaults and rejects an unknown exporter.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		c.ServiceName = "webapi"
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		c.SampleRate = 1
	}
	switch c.Exporter {
	case "":
		c.Exporter = ExporterOTLP
	case ExporterOTLP, ExporterJaeger:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExporter, c.Exporter)
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultOTLPEndpoint
		if c.Exporter == ExporterJaeger {
			c.Endpoint = DefaultJaegerEndpoint
		}
	}
	return nil
}

// New returns a tracer and the closer that flushes it. The caller owns the
// closer and should close it on shutdown.
func New(c Config, logger *slog.Logger) (opentracing.Tracer, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !c.Enabled {
		return opentracing.NoopTracer{}, nopCloser{}, nil
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		tracer opentracing.Tracer
		closer io.Closer
		err    error
	)
	switch c.Exporter {
	case ExporterJaeger:
		tracer, closer, err = newJaeger(c, logger)
	default:
		tracer, closer, err = newOTLP(c, logger)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create tracer: %w", err)
	}

	logger.Info("tracing enabled",
		"service", c.ServiceName,
		"exporter", c.Exporter,
		"endpoint", c.Endpoint,
		"sampleRate", c.SampleRate,
	)
	return tracer, closer, nil
}

func newJaeger(c Config, logger *slog.Logger) (opentracing.Tracer, io.Closer, error) {
	cfg := jaegercfg.Configuration{
		ServiceName: c.ServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeProbabilistic,
			Param: c.SampleRate,
		},
		Reporter: &jaegercfg.ReporterConfig{
			CollectorEndpoint: c.Endpoint,
		},
	}
	return cfg.NewTracer(jaegercfg.Logger(jaegerLogger{logger}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// jaegerLogger adapts slog to jaeger.Logger.
type jaegerLogger struct {
	logger *slog.Logger
}

func (l jaegerLogger) Error(msg string) {
	l.logger.Error("jaeger: " + msg)
}

func (l jaegerLogger) Infof(msg string, args ...interface{}) {
	l.logger.Debug("jaeger: " + fmt.Sprintf(msg, args...))
}
