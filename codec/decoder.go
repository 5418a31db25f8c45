package codec

import (
	"context"
	"errors"

	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/wire"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// minOpLen is the encoded size of the smallest operation, a removal.
const minOpLen = 1 + wire.IDLen

// Decoder reconstructs transactions using the factories of a registry. It
// is safe for concurrent use as long as the registry is no longer being
// populated.
type Decoder struct {
	registry *core.Registry
	opts     options
	inst     instruments
}

// NewDecoder creates a Decoder that resolves element types in registry.
func NewDecoder(registry *core.Registry, opts ...Option) *Decoder {
	o := newOptions(opts)
	return &Decoder{registry: registry, opts: o, inst: newInstruments(o)}
}

// Decode reconstructs a transaction from data. On error no transaction is
// returned. ctx is used for tracing only.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*core.Transaction, error) {
	ctx, span := d.opts.tracer.Start(ctx, "fuse.codec.decode",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("fuse.bytes", len(data))),
	)
	defer span.End()

	tx, err := decode(d.registry, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("fuse.error_kind", fuseerr.KindOf(err)))
		d.inst.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("direction", "decode"),
			attribute.String("kind", fuseerr.KindOf(err)),
		))
		d.opts.logger.WarnContext(ctx, "transaction decode failed", "bytes", len(data), "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("fuse.stamp", int64(tx.Stamp())),
		attribute.Int("fuse.operations", tx.Len()),
	)
	span.SetStatus(codes.Ok, "")
	d.inst.transactions.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", "decode")))
	d.opts.logger.DebugContext(ctx, "transaction decoded", "operations", tx.Len(), "bytes", len(data))
	return tx, nil
}

// Unmarshal reconstructs a transaction using registry, without logging or
// instrumentation.
func Unmarshal(registry *core.Registry, data []byte) (*core.Transaction, error) {
	return decode(registry, data)
}

func decode(registry *core.Registry, data []byte) (*core.Transaction, error) {
	const op = "codec.Decode"
	if registry == nil {
		return nil, fuseerr.Configuration(op, errors.New("decoder has no registry"))
	}

	r := wire.NewReader(data)
	magic, err := r.Raw(len(wire.StreamMagic))
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	if string(magic) != wire.StreamMagic {
		return nil, fuseerr.Malformedf(op, "bad magic %q", magic)
	}
	version, err := r.Byte()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	if version != wire.StreamVersion {
		return nil, fuseerr.Malformedf(op, "unsupported stream version %d", version)
	}

	stamp, err := r.Varint()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	minStamp, err := r.Varint()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	tx := core.NewTransaction(core.Time(stamp))

	count, err := r.Uvarint()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	if count > uint64(r.Remaining()) {
		return nil, fuseerr.Malformedf(op, "%d involved stamps exceed %d remaining bytes", count, r.Remaining())
	}
	var prev int64
	for i := uint64(0); i < count; i++ {
		s, err := r.Varint()
		if err != nil {
			return nil, fuseerr.Malformed(op, err)
		}
		if i > 0 && s <= prev {
			return nil, fuseerr.Malformedf(op, "involved stamps not strictly ascending at index %d", i)
		}
		prev = s
		tx.AddInvolvedStamp(core.Time(s))
	}
	if got := tx.MinStamp(); int64(got) != minStamp {
		return nil, fuseerr.Malformedf(op, "min stamp %d does not match stamps (want %d)", minStamp, int64(got))
	}

	count, err = r.Uvarint()
	if err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	if count > uint64(r.Remaining()/minOpLen) {
		return nil, fuseerr.Malformedf(op, "%d operations exceed %d remaining bytes", count, r.Remaining())
	}
	for i := uint64(0); i < count; i++ {
		if err := decodeOperation(registry, r, tx, i); err != nil {
			return nil, err
		}
	}
	if err := r.Done(); err != nil {
		return nil, fuseerr.Malformed(op, err)
	}
	return tx, nil
}

func decodeOperation(registry *core.Registry, r *wire.Reader, tx *core.Transaction, index uint64) error {
	const op = "codec.Decode"
	kindByte, err := r.Byte()
	if err != nil {
		return fuseerr.Malformed(op, err)
	}
	kind := core.OpKind(kindByte)
	if !kind.Valid() {
		return fuseerr.Malformedf(op, "operation %d has unknown kind %d", index, kindByte)
	}
	raw, err := r.ID()
	if err != nil {
		return fuseerr.Malformed(op, err)
	}
	opID := id.ID(raw)

	switch kind {
	case core.OpRemoveVariable:
		tx.RemoveVariable(opID)
		return nil
	case core.OpRemoveConstraint:
		tx.RemoveConstraint(opID)
		return nil
	}

	typeName, err := r.String()
	if err != nil {
		return fuseerr.Malformed(op, err)
	}
	payload, err := r.LenBytes()
	if err != nil {
		return fuseerr.Malformed(op, err)
	}

	factory, err := registry.Resolve(typeName)
	if err != nil {
		return err
	}
	elem, err := factory(payload)
	if err != nil {
		return fuseerr.Malformed(op, err).WithContext(map[string]any{
			"operation": index,
			"type":      typeName,
		})
	}
	if elem == nil {
		return fuseerr.Malformedf(op, "operation %d: factory for %q returned no element", index, typeName)
	}
	if elem.Type() != typeName {
		return fuseerr.Malformedf(op, "operation %d: factory for %q built a %q", index, typeName, elem.Type())
	}
	if elem.ID() != opID {
		return fuseerr.Malformedf(op, "operation %d: element id %s does not match operation id %s", index, elem.ID(), opID)
	}

	switch kind {
	case core.OpAddVariable:
		v, ok := elem.(core.Variable)
		if !ok {
			return fuseerr.Malformedf(op, "operation %d: %q is not a variable type", index, typeName)
		}
		if err := tx.AddVariable(v); err != nil {
			return fuseerr.Malformed(op, err)
		}
	case core.OpAddConstraint:
		c, ok := elem.(core.Constraint)
		if !ok {
			return fuseerr.Malformedf(op, "operation %d: %q is not a constraint type", index, typeName)
		}
		if err := tx.AddConstraint(c); err != nil {
			return fuseerr.Malformed(op, err)
		}
	}
	return nil
}
