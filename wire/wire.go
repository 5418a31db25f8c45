// Package wire provides the primitive encoding used by the transaction codec
// and by element payloads.
//
// Unsigned integers and lengths are protobuf varints, signed integers are
// zigzag varints, floats are little-endian fixed64 and byte strings are
// varint length-prefixed. Identifiers are written as their raw 16 bytes.
// These choices are fixed: encoders and decoders of every version must agree.
package wire

import (
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// IDLen is the encoded width of an identifier.
const IDLen = 16

const (
	// StreamMagic opens every serialized transaction.
	StreamMagic = "FUSE"

	// StreamVersion is the transaction format version written after the magic.
	StreamVersion byte = 1
)

var (
	ErrTruncated     = errors.New("wire: truncated data")
	ErrInvalidLength = errors.New("wire: invalid length prefix")
	ErrOverflow      = errors.New("wire: varint overflow")
	ErrTrailingBytes = errors.New("wire: trailing bytes")
)

// Writer appends encoded values to an internal buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) Uvarint(v uint64) {
	w.buf = protowire.AppendVarint(w.buf, v)
}

func (w *Writer) Varint(v int64) {
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeZigZag(v))
}

func (w *Writer) Float64(v float64) {
	w.buf = protowire.AppendFixed64(w.buf, math.Float64bits(v))
}

// LenBytes writes a length-prefixed byte string.
func (w *Writer) LenBytes(b []byte) {
	w.buf = protowire.AppendBytes(w.buf, b)
}

// String writes a length-prefixed UTF-8 string.
func (w *Writer) String(s string) {
	w.buf = protowire.AppendString(w.buf, s)
}

// ID writes a raw 16-byte identifier.
func (w *Writer) ID(id [IDLen]byte) {
	w.buf = append(w.buf, id[:]...)
}

// Float64s writes a count followed by each value.
func (w *Writer) Float64s(vs []float64) {
	w.Uvarint(uint64(len(vs)))
	for _, v := range vs {
		w.Float64(v)
	}
}

// Reader consumes values written by Writer. Every method returns ErrTruncated
// (possibly wrapped) when the buffer ends early.
type Reader struct {
	buf []byte
	off int
}

// NewReader reads from b. b is not copied; callers must not mutate it while
// reading.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset returns the read position.
func (r *Reader) Offset() int {
	return r.off
}

// Done returns ErrTrailingBytes if unread bytes remain.
func (r *Reader) Done() error {
	if n := r.Remaining(); n != 0 {
		return fmt.Errorf("%w: %d unread at offset %d", ErrTrailingBytes, n, r.off)
	}
	return nil
}

func (r *Reader) Byte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, r.truncated("byte")
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// Raw returns the next n bytes as a copy.
func (r *Reader) Raw(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, r.truncated(fmt.Sprintf("%d raw bytes", n))
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

func (r *Reader) Uvarint() (uint64, error) {
	v, n := protowire.ConsumeVarint(r.buf[r.off:])
	if n < 0 {
		return 0, r.varintErr(n)
	}
	r.off += n
	return v, nil
}

func (r *Reader) Varint() (int64, error) {
	v, err := r.Uvarint()
	if err != nil {
		return 0, err
	}
	return protowire.DecodeZigZag(v), nil
}

func (r *Reader) Float64() (float64, error) {
	v, n := protowire.ConsumeFixed64(r.buf[r.off:])
	if n < 0 {
		return 0, r.truncated("fixed64")
	}
	r.off += n
	return math.Float64frombits(v), nil
}

// LenBytes reads a length-prefixed byte string and returns a copy.
func (r *Reader) LenBytes() ([]byte, error) {
	l, err := r.Uvarint()
	if err != nil {
		return nil, err
	}
	if l > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: length %d exceeds %d remaining at offset %d", ErrInvalidLength, l, r.Remaining(), r.off)
	}
	return r.Raw(int(l))
}

func (r *Reader) String() (string, error) {
	b, err := r.LenBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ID() ([IDLen]byte, error) {
	var id [IDLen]byte
	if r.Remaining() < IDLen {
		return id, r.truncated("identifier")
	}
	copy(id[:], r.buf[r.off:r.off+IDLen])
	r.off += IDLen
	return id, nil
}

// Float64s reads a count-prefixed float vector.
func (r *Reader) Float64s() ([]float64, error) {
	count, err := r.Uvarint()
	if err != nil {
		return nil, err
	}
	if count > uint64(r.Remaining()/8) {
		return nil, fmt.Errorf("%w: %d values exceed %d remaining bytes at offset %d", ErrInvalidLength, count, r.Remaining(), r.off)
	}
	out := make([]float64, count)
	for i := range out {
		if out[i], err = r.Float64(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Reader) truncated(what string) error {
	return fmt.Errorf("%w: reading %s at offset %d", ErrTruncated, what, r.off)
}

func (r *Reader) varintErr(n int) error {
	if errors.Is(protowire.ParseError(n), io.ErrUnexpectedEOF) {
		return r.truncated("varint")
	}
	return fmt.Errorf("%w at offset %d", ErrOverflow, r.off)
}
