// Package core defines the contracts every graph element satisfies, the type
// registry used to reconstruct elements from serialized payloads, and the
// Transaction batch that carries elements between producers and the graph.
//
// # Elements
//
// A Variable is a typed, fixed-size piece of estimated state. A Constraint is
// a typed relation over one or more variables that contributes a cost term to
// the optimization. Both are Elements: they report a registered type name, a
// deterministic identifier, a human-readable description and a serialized
// payload.
//
// # Registry
//
// The Registry maps type names to factories. Every package that defines
// element types exposes a registration function; the host calls each of them
// once at startup, then seals the registry:
//
//	reg := core.NewRegistry()
//	if err := variables.Register(reg); err != nil {
//	    log.Fatal(err)
//	}
//	reg.Seal()
//
// After sealing, the registry is read-only and safe for concurrent lookups.
//
// # Transactions
//
// A Transaction is an ordered batch of add and remove operations. It is built
// by a single producer and handed off whole; the codec package turns it into
// bytes and back.
package core
