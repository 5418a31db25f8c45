package codec

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName names the codec's tracer and meter.
const instrumentationName = "github.com/zero-day-ai/fuse/codec"

// Option configures an Encoder or Decoder.
type Option func(*options)

type options struct {
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer used for fuse.codec.encode and
// fuse.codec.decode spans. The default is a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithMeter sets the meter for the fuse.codec.transactions and
// fuse.codec.errors counters. The default is a no-op meter.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		tracer: tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:  metricnoop.NewMeterProvider().Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("component", "codec")
	return o
}

// instruments are the counters shared by encoders and decoders.
type instruments struct {
	transactions metric.Int64Counter
	errors       metric.Int64Counter
}

func newInstruments(o options) instruments {
	var inst instruments
	var err error

	inst.transactions, err = o.meter.Int64Counter(
		"fuse.codec.transactions",
		metric.WithDescription("Number of transactions encoded or decoded"),
		metric.WithUnit("1"),
	)
	if err != nil {
		o.logger.Warn("failed to create transactions counter", "error", err)
		inst.transactions = metricnoop.Int64Counter{}
	}

	inst.errors, err = o.meter.Int64Counter(
		"fuse.codec.errors",
		metric.WithDescription("Number of failed encode or decode calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		o.logger.Warn("failed to create errors counter", "error", err)
		inst.errors = metricnoop.Int64Counter{}
	}
	return inst
}
