// Package codec serializes transactions to the fuse stream format and back.
//
// A stream starts with a header
//
//	"FUSE" version stamp min_stamp involved_count involved_stamp... op_count
//
// followed by op_count operations. An add operation is
//
//	kind id type_name payload
//
// and a remove operation is
//
//	kind id
//
// where type_name and payload are length-prefixed. Primitive encodings are
// defined by package wire.
//
// Decoding dispatches each add operation to the factory registered for its
// type name. The registry is passed explicitly; decoding fails with
// fuseerr.ErrUnknownType when a name is missing and never registers
// anything. Any error discards the partially decoded transaction.
package codec
