package id

import (
	"strings"

	"github.com/google/uuid"
	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/wire"
)

// ID is a fixed-width opaque identifier naming one variable or constraint.
type ID = uuid.UUID

// Nil is the all-zero identifier, used for "no device" and "unset".
var Nil = uuid.Nil

// Namespace is the v5 namespace all element identifiers are derived in.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/zero-day-ai/fuse/id"))

// domain prefixes the hashed name so the encoding can be versioned.
const domain = "fuse/id/v1"

type partKind byte

const (
	kindStamp   partKind = 1
	kindDevice  partKind = 2
	kindContent partKind = 3
	kindText    partKind = 4
)

// Part is one typed component of a disambiguator. The zero Part is invalid.
type Part struct {
	kind  partKind
	value []byte
}

// Stamp is a timestamp part in nanoseconds.
func Stamp(nanos int64) Part {
	w := wire.NewWriter(10)
	w.Varint(nanos)
	return Part{kind: kindStamp, value: w.Bytes()}
}

// Device is a device identifier part.
func Device(device ID) Part {
	return Part{kind: kindDevice, value: device[:]}
}

// Content is an arbitrary byte part.
func Content(data []byte) Part {
	v := make([]byte, len(data))
	copy(v, data)
	return Part{kind: kindContent, value: v}
}

// Text is a string part.
func Text(s string) Part {
	return Part{kind: kindText, value: []byte(s)}
}

// Derive computes the identifier for typeName and the given disambiguator
// parts. Order of parts is significant. It fails with
// fuseerr.ErrInvalidDisambiguator for an empty type name or a zero Part.
func Derive(typeName string, parts ...Part) (ID, error) {
	if strings.TrimSpace(typeName) == "" {
		return Nil, &fuseerr.Error{Op: "id.Derive", Kind: fuseerr.KindInvalidArgument, Err: fuseerr.ErrInvalidDisambiguator, Context: map[string]any{"reason": "empty type name"}}
	}

	w := wire.NewWriter(len(domain) + len(typeName) + 32)
	w.Raw([]byte(domain))
	w.Byte(0x00)
	w.String(typeName)
	for i, p := range parts {
		if p.kind == 0 {
			return Nil, &fuseerr.Error{Op: "id.Derive", Kind: fuseerr.KindInvalidArgument, Err: fuseerr.ErrInvalidDisambiguator, Context: map[string]any{"type": typeName, "part": i}}
		}
		w.Byte(byte(p.kind))
		w.LenBytes(p.value)
	}

	return uuid.NewSHA1(Namespace, w.Bytes()), nil
}

// MustDerive is like Derive but panics on error.
// Use only with constant type names and constructed parts.
func MustDerive(typeName string, parts ...Part) ID {
	id, err := Derive(typeName, parts...)
	if err != nil {
		panic(err)
	}
	return id
}

// Must returns id or panics if err is not nil.
func Must(id ID, err error) ID {
	if err != nil {
		panic(err)
	}
	return id
}

// ForStamp derives the identifier of a time-varying element.
func ForStamp(typeName string, nanos int64, device ID) (ID, error) {
	return Derive(typeName, Stamp(nanos), Device(device))
}

// ForContent derives a content-addressed identifier.
func ForContent(typeName string, data []byte) (ID, error) {
	return Derive(typeName, Content(data))
}

// Parse parses an identifier in canonical dashed, lowercase dashed, undashed
// hex, brace-wrapped dashed or urn:uuid form.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return Nil, fuseerr.InvalidArgument("id.Parse", "invalid identifier %q: %v", s, err)
	}
	return u, nil
}

// ParseOrNil is like Parse but maps the empty string to Nil.
func ParseOrNil(s string) (ID, error) {
	if strings.TrimSpace(s) == "" {
		return Nil, nil
	}
	return Parse(s)
}
