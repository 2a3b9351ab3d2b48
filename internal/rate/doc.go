// Package rate implements the Redis fixed-window counter behind token
// issuance throttling.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit in a window. Keys are
// <prefix>:ri:<userID>.
//
// # What this package must NOT do
//
//   - Decide policy; the engine chooses limits and maps errors.
//   - Be imported outside this module.
package rate
