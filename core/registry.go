package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/zero-day-ai/fuse/fuseerr"
)

// Factory reconstructs an element from the payload produced by its
// MarshalPayload method.
type Factory func(payload []byte) (Element, error)

// Registry maps type names to factories.
//
// A registry is populated during startup by explicit registration calls, one
// per linked element type, and then sealed. At most one factory exists per
// type name; a second registration under the same name is a configuration
// error and never replaces the first. The registry is safe for concurrent
// use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	sealed    bool
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used to report registrations.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a factory for typeName.
//
// Returns a configuration error wrapping fuseerr.ErrDuplicateType if the name
// is already registered, fuseerr.ErrRegistrySealed after Seal, and
// fuseerr.ErrConfiguration for an empty name or nil factory.
func (r *Registry) Register(typeName string, factory Factory) error {
	const op = "Registry.Register"
	if strings.TrimSpace(typeName) == "" {
		return fuseerr.Configuration(op, errors.New("empty type name"))
	}
	if factory == nil {
		return fuseerr.Configuration(op, fmt.Errorf("nil factory for type %q", typeName)).
			WithContext(map[string]any{"type": typeName})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fuseerr.Configuration(op, fuseerr.ErrRegistrySealed).
			WithContext(map[string]any{"type": typeName})
	}
	if _, exists := r.factories[typeName]; exists {
		return fuseerr.Configuration(op, fuseerr.ErrDuplicateType).
			WithContext(map[string]any{"type": typeName})
	}

	r.factories[typeName] = factory
	r.logger.Debug("registered element type", "component", "registry", "type", typeName)
	return nil
}

// MustRegister is like Register but panics on error, halting startup.
func (r *Registry) MustRegister(typeName string, factory Factory) {
	if err := r.Register(typeName, factory); err != nil {
		panic(err)
	}
}

// Resolve returns the factory registered under typeName, or an error
// wrapping fuseerr.ErrUnknownType.
func (r *Registry) Resolve(typeName string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[typeName]
	if !ok {
		return nil, fuseerr.UnknownType("Registry.Resolve", typeName)
	}
	return f, nil
}

// IsRegistered reports whether typeName has a factory.
func (r *Registry) IsRegistered(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[typeName]
	return ok
}

// KnownTypeNames returns all registered type names, sorted.
func (r *Registry) KnownTypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Seal ends the registration phase. Subsequent Register calls fail.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.sealed {
		r.sealed = true
		r.logger.Info("element registry sealed", "component", "registry", "types", len(r.factories))
	}
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// RegisterVariable registers a typed variable decoder under typeName.
func RegisterVariable[T Variable](r *Registry, typeName string, decode func([]byte) (T, error)) error {
	if decode == nil {
		return r.Register(typeName, nil)
	}
	return r.Register(typeName, func(payload []byte) (Element, error) {
		v, err := decode(payload)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// RegisterConstraint registers a typed constraint decoder under typeName.
func RegisterConstraint[T Constraint](r *Registry, typeName string, decode func([]byte) (T, error)) error {
	if decode == nil {
		return r.Register(typeName, nil)
	}
	return r.Register(typeName, func(payload []byte) (Element, error) {
		c, err := decode(payload)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}
