package fuse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zero-day-ai/fuse/codec"
	"github.com/zero-day-ai/fuse/constraints"
	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/params"
	"github.com/zero-day-ai/fuse/variables"
)

// RegisterReferenceTypes registers every element type shipped with fuse:
// PointVariable, DummyVariable, PriorConstraint and RelativeConstraint.
func RegisterReferenceTypes(r *core.Registry) error {
	if err := variables.Register(r); err != nil {
		return err
	}
	return constraints.Register(r)
}

// NewRegistry returns a sealed registry holding the reference types.
func NewRegistry(opts ...core.RegistryOption) (*core.Registry, error) {
	r := core.NewRegistry(opts...)
	if err := RegisterReferenceTypes(r); err != nil {
		return nil, err
	}
	r.Seal()
	return r, nil
}

// Fuse bundles a sealed registry with an encoder and decoder configured the
// same way. It is safe for concurrent use.
type Fuse struct {
	registry *core.Registry
	encoder  *codec.Encoder
	decoder  *codec.Decoder
	params   params.Source
	logger   *slog.Logger
}

// New builds a runtime. The reference types are always registered; types
// added with WithTypes follow in order. A registration failure, such as a
// duplicate type name, aborts construction.
//
// Example:
//
//	f, err := fuse.New(fuse.WithLogger(logger), fuse.WithConfig("/etc/fuse.yaml"))
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Fuse, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	var sources []params.Source
	if cfg.params != nil {
		sources = append(sources, cfg.params)
	}
	if cfg.configPath != "" {
		fileParams, err := params.LoadYAMLFile(cfg.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", cfg.configPath, err)
		}
		sources = append(sources, fileParams)
	}

	r := core.NewRegistry(core.WithLogger(cfg.logger))
	if err := RegisterReferenceTypes(r); err != nil {
		return nil, err
	}
	for _, register := range cfg.registrars {
		if register == nil {
			continue
		}
		if err := register(r); err != nil {
			return nil, err
		}
	}
	r.Seal()

	codecOpts := []codec.Option{
		codec.WithLogger(cfg.logger),
		codec.WithTracer(cfg.tracer),
		codec.WithMeter(cfg.meter),
	}
	return &Fuse{
		registry: r,
		encoder:  codec.NewEncoder(codecOpts...),
		decoder:  codec.NewDecoder(r, codecOpts...),
		params:   params.Chain(sources),
		logger:   cfg.logger,
	}, nil
}

// Registry returns the sealed registry.
func (f *Fuse) Registry() *core.Registry {
	return f.registry
}

// Encoder returns the runtime's encoder.
func (f *Fuse) Encoder() *codec.Encoder {
	return f.encoder
}

// Decoder returns the runtime's decoder.
func (f *Fuse) Decoder() *codec.Decoder {
	return f.decoder
}

// Encode serializes tx.
func (f *Fuse) Encode(ctx context.Context, tx *core.Transaction) ([]byte, error) {
	return f.encoder.Encode(ctx, tx)
}

// Decode reconstructs a transaction serialized by a runtime with the same
// types.
func (f *Fuse) Decode(ctx context.Context, data []byte) (*core.Transaction, error) {
	return f.decoder.Decode(ctx, data)
}

// DeviceID resolves this host's device identifier from its parameters. See
// variables.LoadDeviceID.
func (f *Fuse) DeviceID(ctx context.Context) (id.ID, error) {
	return variables.LoadDeviceID(ctx, f.params)
}
