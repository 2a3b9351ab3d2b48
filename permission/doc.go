// Package permission provides the 64-bit permission mask, a name-to-bit
// registry, and role composition helpers used by access authorization checks.
//
// # Bit layout
//
// Bits are assigned by [Registry.Register] in registration order and are
// stable for the lifetime of the process. The access package registers the
// permission catalogue in declaration order, so bit i is catalogue code i.
// When root reservation is enabled, bit 63 grants every permission.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. It provides the
// codec ([EncodeMask]/[DecodeMask]) used by the role store and by access tokens.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import access, jwt, or rolestore.
//   - Resize masks after registry construction.
package permission
