// Package access defines the admin console's permission catalogue and the
// engine that authorizes operators against it.
//
// # Catalogue
//
// The catalogue is a closed, ordered set of permission codes of the form
// <domain>:<resource>:<action>[:<qualifier>], each with a display label. It
// is built at package initialization and never changes. [ListCodes],
// [LabelOf] and [IsValidCode] work on wire strings; [Code] is the typed form
// used inside the process, converted at the boundary with [ParseCode].
//
// # Engine
//
// [Engine] is assembled with [Builder]. It lays the catalogue out as a
// 64-bit permission mask (bit i is Code(i)), keeps role assignments in Redis,
// issues access tokens carrying a role's mask, and answers [Engine.Authorize].
// Engine methods are safe to call from multiple goroutines.
//
// # What this package must NOT do
//
//   - Accept permission codes from outside the process without checking them
//     against the catalogue.
//   - Add, remove, or relabel codes at runtime.
//   - Close the caller's Redis client.
package access
