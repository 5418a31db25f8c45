package core

import (
	"github.com/zero-day-ai/fuse/id"
)

// Element is the contract shared by variables and constraints. It is the
// value a registry Factory reconstructs from a payload.
type Element interface {
	// Type returns the registered type name, e.g. "PointVariable".
	Type() string

	// ID returns the element's deterministic identifier.
	ID() id.ID

	// Describe returns a human-readable, multi-line description.
	Describe() string

	// MarshalPayload serializes the element's state. The registered factory
	// for Type() must accept the result.
	MarshalPayload() ([]byte, error)
}

// Variable is a typed, fixed-size piece of estimated state.
//
// Identity and Size never change after construction. The values behind Data
// may be modified in place by a solver.
type Variable interface {
	Element

	// Size returns the number of scalar components; always at least 1.
	Size() int

	// Data returns the variable's scalar components. The slice aliases the
	// variable's storage and has length Size().
	Data() []float64
}

// Constraint is a typed relation over one or more variables. Constraints are
// immutable after construction.
type Constraint interface {
	Element

	// Variables returns the identifiers of the constrained variables, in the
	// order the cost function expects its parameter blocks. Never empty.
	Variables() []id.ID

	// CostFunction builds a new cost function for the solver. Every call
	// returns an independent object owned by the caller.
	CostFunction() (CostFunction, error)
}
