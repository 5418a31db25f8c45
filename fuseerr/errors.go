// Package fuseerr defines the error taxonomy shared by the registry, the
// element types and the transaction codec.
//
// Every failure is reported through a sentinel that can be checked with
// errors.Is, usually wrapped in a structured *Error that records the
// operation that failed and its kind:
//
//	tx, err := dec.Decode(ctx, data)
//	if errors.Is(err, fuseerr.ErrUnknownType) {
//	    // the stream names a type this process never registered
//	}
package fuseerr

import (
	"errors"
	"fmt"
)

// Sentinel errors. ErrDuplicateType and ErrRegistrySealed are configuration
// errors: errors.Is(err, ErrConfiguration) holds for both.
var (
	// ErrConfiguration indicates the registry was set up incorrectly. It is
	// fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrDuplicateType indicates a second factory was registered under an
	// existing type name.
	ErrDuplicateType = fmt.Errorf("duplicate type registration: %w", ErrConfiguration)

	// ErrRegistrySealed indicates a registration attempt after startup.
	ErrRegistrySealed = fmt.Errorf("registry is sealed: %w", ErrConfiguration)

	// ErrUnknownType indicates a type name that does not resolve in the registry.
	ErrUnknownType = errors.New("unknown type")

	// ErrMalformedStream indicates truncated or corrupt serialized bytes.
	ErrMalformedStream = errors.New("malformed stream")

	// ErrDimensionMismatch indicates a decoded payload whose length disagrees
	// with the declared size of a variable.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidDisambiguator indicates identifier inputs that cannot be
	// encoded unambiguously.
	ErrInvalidDisambiguator = errors.New("invalid disambiguator")

	// ErrInvalidArgument indicates a constructor received values that violate
	// an element's invariants (sizes, indices, non-positive covariance).
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error kinds.
const (
	KindConfiguration     = "configuration"
	KindUnknownType       = "unknown_type"
	KindMalformedStream   = "malformed_stream"
	KindDimensionMismatch = "dimension_mismatch"
	KindInvalidArgument   = "invalid_argument"
)

// Error wraps an underlying error with the operation that failed and the
// category of failure. It supports errors.Is and errors.As.
type Error struct {
	// Op is the operation that failed (e.g. "Registry.Register", "Decoder.Decode").
	Op string

	// Kind categorizes the error (e.g. KindUnknownType).
	Kind string

	// Err is the underlying error.
	Err error

	// Context carries optional debugging values such as type names or offsets.
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fuse: %s: %s", e.Op, e.Kind)
	}
	if len(e.Context) > 0 {
		return fmt.Sprintf("fuse: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}
	return fmt.Sprintf("fuse: %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind (and Op when the target sets one), then
// falls back to the wrapped chain.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}
	return errors.Is(e.Err, target)
}

// WithContext returns a copy of e with the given values merged into Context.
func (e *Error) WithContext(ctx map[string]any) *Error {
	newErr := *e
	merged := make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	newErr.Context = merged
	return &newErr
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// wrap joins a sentinel with an optional cause so both satisfy errors.Is.
func wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	if errors.Is(cause, sentinel) {
		return cause
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// Configuration creates a KindConfiguration error. cause may be one of the
// configuration sentinels or any descriptive error.
func Configuration(op string, cause error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: wrap(ErrConfiguration, cause)}
}

// UnknownType creates a KindUnknownType error for typeName.
func UnknownType(op, typeName string) *Error {
	return &Error{
		Op:      op,
		Kind:    KindUnknownType,
		Err:     fmt.Errorf("%w: %q", ErrUnknownType, typeName),
		Context: map[string]any{"type": typeName},
	}
}

// Malformed creates a KindMalformedStream error wrapping cause.
func Malformed(op string, cause error) *Error {
	return &Error{Op: op, Kind: KindMalformedStream, Err: wrap(ErrMalformedStream, cause)}
}

// Malformedf is Malformed with a formatted cause.
func Malformedf(op, format string, args ...any) *Error {
	return Malformed(op, fmt.Errorf(format, args...))
}

// DimensionMismatch creates a KindDimensionMismatch error.
func DimensionMismatch(op, typeName string, want, got int) *Error {
	return &Error{
		Op:      op,
		Kind:    KindDimensionMismatch,
		Err:     fmt.Errorf("%w: %s expects %d values, payload has %d", ErrDimensionMismatch, typeName, want, got),
		Context: map[string]any{"type": typeName, "want": want, "got": got},
	}
}

// InvalidArgument creates a KindInvalidArgument error.
func InvalidArgument(op, format string, args ...any) *Error {
	return &Error{Op: op, Kind: KindInvalidArgument, Err: fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))}
}
