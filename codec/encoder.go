package codec

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/wire"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Encoder serializes transactions. It is safe for concurrent use.
type Encoder struct {
	opts options
	inst instruments
}

// NewEncoder creates an Encoder.
func NewEncoder(opts ...Option) *Encoder {
	o := newOptions(opts)
	return &Encoder{opts: o, inst: newInstruments(o)}
}

// Encode serializes tx. The same transaction always encodes to the same
// bytes. ctx is used for tracing only.
func (e *Encoder) Encode(ctx context.Context, tx *core.Transaction) ([]byte, error) {
	ctx, span := e.opts.tracer.Start(ctx, "fuse.codec.encode", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	data, err := encode(tx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.inst.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", "encode")))
		e.opts.logger.WarnContext(ctx, "transaction encode failed", "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("fuse.stamp", int64(tx.Stamp())),
		attribute.Int("fuse.operations", tx.Len()),
		attribute.Int("fuse.bytes", len(data)),
	)
	span.SetStatus(codes.Ok, "")
	e.inst.transactions.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", "encode")))
	e.opts.logger.DebugContext(ctx, "transaction encoded", "operations", tx.Len(), "bytes", len(data))
	return data, nil
}

// Marshal serializes tx without logging or instrumentation.
func Marshal(tx *core.Transaction) ([]byte, error) {
	return encode(tx)
}

func encode(tx *core.Transaction) ([]byte, error) {
	const op = "codec.Encode"
	if tx == nil {
		return nil, fuseerr.InvalidArgument(op, "transaction is nil")
	}

	w := wire.NewWriter(64 + 64*tx.Len())
	w.Raw([]byte(wire.StreamMagic))
	w.Byte(wire.StreamVersion)
	w.Varint(int64(tx.Stamp()))
	w.Varint(int64(tx.MinStamp()))

	involved := tx.InvolvedStamps()
	w.Uvarint(uint64(len(involved)))
	for _, s := range involved {
		w.Varint(int64(s))
	}

	ops := tx.Operations()
	w.Uvarint(uint64(len(ops)))
	for i, o := range ops {
		if !o.Kind.Valid() {
			return nil, fuseerr.InvalidArgument(op, "operation %d has invalid kind %s", i, o.Kind)
		}
		w.Byte(byte(o.Kind))
		w.ID(o.ID)
		if !o.Kind.IsAdd() {
			continue
		}

		elem := o.Element()
		if elem == nil {
			return nil, fuseerr.InvalidArgument(op, "operation %d (%s) carries no element", i, o.Kind)
		}
		typeName := elem.Type()
		if typeName == "" {
			return nil, fuseerr.InvalidArgument(op, "operation %d element %s has an empty type name", i, o.ID)
		}
		if elem.ID() != o.ID {
			return nil, fuseerr.InvalidArgument(op, "operation %d id %s does not match element id %s", i, o.ID, elem.ID())
		}
		payload, err := elem.MarshalPayload()
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s %s): %w", i, typeName, o.ID, err)
		}
		w.String(typeName)
		w.LenBytes(payload)
	}
	return w.Bytes(), nil
}
