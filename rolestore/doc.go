// Package rolestore persists role-to-permission assignments in Redis.
//
// # Storage layout
//
// Each role is a hash at "<prefix>:role:<name>" holding the encoded
// [permission.Mask64] ("mask") and its version ("v"). Versions come from the
// counter "<prefix>:rolever:<name>", which Delete leaves in place.
// Role names are indexed in the set "<prefix>:roles"; deleted names are
// kept in "<prefix>:roles:deleted" until saved again.
//
// # Architecture boundaries
//
// This package stores masks only. It does NOT know permission codes or their
// labels; the access Engine validates codes against the catalogue before
// anything reaches the store, and translates masks back into codes on read.
//
// # What this package must NOT do
//
//   - Import access, jwt, or middleware (no upward imports).
//   - Accept or return raw permission code strings.
package rolestore
