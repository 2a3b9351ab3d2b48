// Package middleware adapts access.Engine validation and permission checks
// to net/http handlers.
//
// # Guards
//
//   - [Guard] validates the bearer token in the configured or given mode.
//   - [RequireJWTOnly] trusts the token's embedded mask; no Redis call.
//   - [RequireStrict] reloads the role from Redis and rejects stale tokens.
//   - [RequirePermission] guards and additionally requires one catalogue code.
//
// Guards answer 401 when no valid token is presented and 403 when the caller
// lacks the required code. The validated [access.AuthResult] is available to
// the wrapped handler through [AuthResultFromContext].
//
// # What this package must NOT do
//
//   - Parse or sign tokens directly.
//   - Access Redis.
package middleware
