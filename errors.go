package access

import "errors"

var (
	// ErrPermissionNotFound is returned when a permission code is not in the catalogue.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrPermissionDenied is returned when an authenticated caller lacks a required permission.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnauthorized is returned when no valid access token was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenInvalid is returned when an access token fails signature or claim checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRoleNotFound is returned when a role has no stored assignment.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleInvalid is returned for an empty or malformed role name.
	ErrRoleInvalid = errors.New("invalid role")
	// ErrRoleVersionStale is returned in strict mode when a token was issued
	// against an older role assignment.
	ErrRoleVersionStale = errors.New("role version stale")
	// ErrRoleStoreUnavailable is returned when the role store backend cannot be reached.
	ErrRoleStoreUnavailable = errors.New("role store unavailable")
	// ErrRateLimited is returned when a user exceeds the token issuance budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidRouteMode is returned for an unknown validation mode.
	ErrInvalidRouteMode = errors.New("invalid route validation mode")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not ready")
)
