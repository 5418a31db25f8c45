// Package fuse is the entry point of the fuse serialization runtime.
//
// A fuse host moves batches of state estimation data, transactions of
// variables and the constraints relating them, between processes. Element
// types are registered by name in a core.Registry at startup; the codec
// package encodes a transaction as a stream of (type name, payload) records
// and decodes it by looking each name up in the registry.
//
// # Getting Started
//
// Build a runtime with the reference types and any of your own:
//
//	f, err := fuse.New(
//		fuse.WithLogger(logger),
//		fuse.WithTypes(mytypes.Register),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	tx := core.NewTransaction(core.Seconds(10))
//	v := variables.NewPointVariable(core.Seconds(10), id.Nil, 1, 2)
//	if err := tx.AddVariable(v); err != nil {
//		log.Fatal(err)
//	}
//	data, err := f.Encode(ctx, tx)
//
// The receiving side decodes with a runtime configured with the same types:
//
//	tx, err := f.Decode(ctx, data)
//
// # Packages
//
//   - id: deterministic identifiers
//   - core: element contracts, the type registry and transactions
//   - wire, codec: the stream format
//   - variables, constraints: reference element types
//   - params: host parameters (YAML, etcd)
//   - selector: CEL filters over operations
//   - txlog: Redis-backed transaction log
//   - fuseerr: error taxonomy
//
// Registration happens once, single-threaded, before any decoding. The
// registry returned by New and NewRegistry is sealed and safe for concurrent
// lookups.
package fuse
