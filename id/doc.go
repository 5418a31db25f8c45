// Package id provides deterministic identifier derivation for graph elements.
//
// Every variable and constraint is named by a 16-byte identifier derived from
// its type name and a type-specific disambiguator: a timestamp and device for
// time-varying variables, arbitrary content for content-addressed elements.
// The same inputs always produce the same identifier, in every process and on
// every platform, so identifiers stored in serialized transactions remain
// valid across restarts.
//
// # Derivation
//
// Identifiers are RFC 4122 version 5 (name-based, SHA-1) UUIDs in a fixed
// namespace. The hashed name is a self-delimiting encoding:
//
//	"fuse/id/v1" 0x00 len(type) type { kind len(value) value }*
//
// Each disambiguator part carries a kind tag and a length prefix, so distinct
// inputs can never concatenate to the same byte string ("ab"+"c" and
// "a"+"bc" hash differently, as do a stamp and content with equal bytes).
//
// # Usage
//
//	vid := id.MustDerive("PointVariable", id.Stamp(10_000_000_000), id.Device(id.Nil))
//	cid, err := id.ForContent("PriorConstraint", payload)
//
// Device identifiers handed in by host configuration are parsed with Parse,
// which accepts the dashed, undashed, brace-wrapped and urn forms.
package id
