package fuse

import (
	"log/slog"

	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/params"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Registrar adds element types to a registry.
type Registrar func(*core.Registry) error

// Option configures a Fuse runtime.
type Option func(*config)

type config struct {
	configPath string
	params     params.Source
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	registrars []Registrar
}

// WithConfig loads host parameters from a YAML file. Parameters set with
// WithParams take precedence.
func WithConfig(path string) Option {
	return func(c *config) {
		c.configPath = path
	}
}

// WithParams sets the source of host parameters, such as the device
// identifier.
func WithParams(source params.Source) Option {
	return func(c *config) {
		c.params = source
	}
}

// WithLogger sets a custom logger. If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for codec spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for codec counters.
func WithMeter(meter metric.Meter) Option {
	return func(c *config) {
		c.meter = meter
	}
}

// WithTypes registers additional element types after the reference types.
func WithTypes(registrars ...Registrar) Option {
	return func(c *config) {
		c.registrars = append(c.registrars, registrars...)
	}
}
