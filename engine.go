package access

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cmsconsole/access/internal/rate"
	"github.com/cmsconsole/access/jwt"
	"github.com/cmsconsole/access/permission"
	"github.com/cmsconsole/access/rolestore"
)

// Engine issues console access tokens, validates them, and answers
// permission checks against the catalogue. It is safe for concurrent use.
type Engine struct {
	config      Config
	registry    *permission.Registry
	roleManager *permission.RoleManager
	roleStore   *rolestore.Store
	jwtManager  *jwt.Manager
	rootRole    string
	limiter     *rate.Limiter

	audit   *auditDispatcher
	metrics *Metrics
}

/*
====================================
TOKENS
====================================
*/

// IssueAccess signs an access token for userID acting as role. The mask
// embedded in the token is the role's current assignment. With rate limiting
// enabled, a user over the issuance budget gets ErrRateLimited.
//
//	Performance: 1 Redis HMGET (none for the root role), plus INCR when
//	rate limiting is enabled.
func (e *Engine) IssueAccess(ctx context.Context, userID, role string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if userID == "" {
		return "", ErrUnauthorized
	}

	if err := e.allowIssue(ctx, userID); err != nil {
		e.emitAudit(ctx, auditEventTokenIssued, false, userID, role, "", "", err, nil)
		return "", err
	}

	mask, version, err := e.resolveRole(ctx, role)
	if err != nil {
		e.emitAudit(ctx, auditEventTokenIssued, false, userID, role, "", "", err, nil)
		return "", err
	}

	token, err := e.jwtManager.CreateAccess(
		userID,
		role,
		permission.EncodeMask(&mask),
		version,
		e.isRoot(role),
	)
	if err != nil {
		e.emitAudit(ctx, auditEventTokenIssued, false, userID, role, "", "", err, nil)
		return "", err
	}

	e.metrics.Inc(MetricTokenIssued)
	e.emitAudit(ctx, auditEventTokenIssued, true, userID, role, "", "", nil, nil)
	return token, nil
}

// Validate verifies token and returns the caller's permissions. routeMode
// ModeInherit uses the configured ValidationMode.
//
// In ModeStrict the role mask is re-read from the store and tokens issued
// against an older role version fail with ErrRoleVersionStale.
func (e *Engine) Validate(ctx context.Context, token string, routeMode RouteMode) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}()

	mode := routeMode
	if mode == ModeInherit {
		mode = e.config.ValidationMode
	}
	if mode != ModeJWTOnly && mode != ModeStrict {
		return nil, ErrInvalidRouteMode
	}

	if token == "" {
		e.metrics.Inc(MetricTokenRejected)
		return nil, ErrUnauthorized
	}

	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		e.metrics.Inc(MetricTokenRejected)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", "", "", "", err, nil)
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	decoded, err := permission.DecodeMask(claims.Mask)
	if err != nil {
		e.metrics.Inc(MetricTokenRejected)
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	mask := *decoded

	if mode == ModeStrict {
		current, version, err := e.resolveRole(ctx, claims.Role)
		if err != nil {
			e.metrics.Inc(MetricTokenRejected)
			e.emitAudit(ctx, auditEventTokenRejected, false, claims.UID, claims.Role, "", claims.ID, err, nil)
			return nil, err
		}
		if version != claims.RoleVersion {
			e.metrics.Inc(MetricRoleVersionStale)
			e.metrics.Inc(MetricTokenRejected)
			e.emitAudit(ctx, auditEventTokenRejected, false, claims.UID, claims.Role, "", claims.ID, ErrRoleVersionStale, nil)
			return nil, ErrRoleVersionStale
		}
		mask = current
	}

	res := &AuthResult{
		UserID:      claims.UID,
		Role:        claims.Role,
		TokenID:     claims.ID,
		RoleVersion: claims.RoleVersion,
		Mask:        mask,
	}
	if e.config.Result.IncludePermissions {
		res.Permissions = e.GrantedCodes(mask)
	}

	return res, nil
}

/*
====================================
AUTHORIZATION
====================================
*/

// HasPermission reports whether mask grants code. The root bit, when
// reserved, grants every code.
func (e *Engine) HasPermission(mask permission.Mask64, code Code) bool {
	if e == nil || !code.Valid() {
		return false
	}
	return mask.Has(int(code), e.config.Permission.RootBitReserved)
}

// Authorize returns nil if res holds code, ErrPermissionDenied if it does not,
// and ErrUnauthorized for a nil result.
func (e *Engine) Authorize(ctx context.Context, res *AuthResult, code Code) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if res == nil {
		return ErrUnauthorized
	}
	if !code.Valid() {
		e.metrics.Inc(MetricUnknownPermission)
		return fmt.Errorf("%w: %s", ErrPermissionNotFound, code)
	}

	if !e.HasPermission(res.Mask, code) {
		e.metrics.Inc(MetricPermissionDenied)
		e.emitAudit(ctx, auditEventPermissionDenied, false, res.UserID, res.Role, code.String(), res.TokenID, ErrPermissionDenied, nil)
		return fmt.Errorf("%w: %s", ErrPermissionDenied, code)
	}

	e.metrics.Inc(MetricPermissionGranted)
	e.emitAudit(ctx, auditEventPermissionGranted, true, res.UserID, res.Role, code.String(), res.TokenID, nil, nil)
	return nil
}

// AuthorizeCode is Authorize for a wire code. Codes outside the catalogue
// fail with ErrPermissionNotFound before any mask is consulted.
func (e *Engine) AuthorizeCode(ctx context.Context, res *AuthResult, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	c, err := ParseCode(code)
	if err != nil {
		e.metrics.Inc(MetricUnknownPermission)
		return err
	}
	return e.Authorize(ctx, res, c)
}

// GrantedCodes lists the catalogue codes mask grants, in catalogue order.
func (e *Engine) GrantedCodes(mask permission.Mask64) []Code {
	out := make([]Code, 0, mask.Count())
	for _, c := range Codes() {
		if e.HasPermission(mask, c) {
			out = append(out, c)
		}
	}
	return out
}

/*
====================================
ROLES
====================================
*/

// SetRolePermissions replaces the codes held by role and returns the new
// role version. Every code must be in the catalogue; on the first unknown
// code nothing is written and the error matches ErrPermissionNotFound.
func (e *Engine) SetRolePermissions(ctx context.Context, role string, codes []string) (uint32, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if err := e.checkWritableRole(role); err != nil {
		e.metrics.Inc(MetricRoleRejected)
		e.emitAudit(ctx, auditEventRoleRejected, false, "", role, "", "", err, nil)
		return 0, err
	}

	if _, err := ParseCodes(codes); err != nil {
		e.metrics.Inc(MetricRoleRejected)
		e.metrics.Inc(MetricUnknownPermission)
		e.emitAudit(ctx, auditEventRoleRejected, false, "", role, "", "", err, nil)
		return 0, err
	}

	mask, err := e.roleManager.Compose(codes)
	if err != nil {
		return 0, err
	}

	version, err := e.roleStore.Save(ctx, role, mask)
	if err != nil {
		return 0, mapStoreError(err)
	}

	e.metrics.Inc(MetricRoleUpdated)
	e.emitAudit(ctx, auditEventRoleUpdated, true, "", role, "", "", nil, map[string]string{
		"version": fmt.Sprint(version),
		"count":   fmt.Sprint(mask.Count()),
	})
	return version, nil
}

// RolePermissions returns role's current assignment in catalogue order.
func (e *Engine) RolePermissions(ctx context.Context, role string) (RoleInfo, error) {
	if e == nil {
		return RoleInfo{}, ErrEngineNotReady
	}
	mask, version, err := e.resolveRole(ctx, role)
	if err != nil {
		return RoleInfo{}, err
	}

	granted := e.GrantedCodes(mask)
	info := RoleInfo{
		Name:        role,
		Version:     version,
		Permissions: make([]Entry, 0, len(granted)),
	}
	for _, c := range granted {
		info.Permissions = append(info.Permissions, Entry{Code: c, Label: c.Label()})
	}
	return info, nil
}

// DeleteRole removes role from the store. A built-in role is deleted too:
// the store records the deletion, so no instance sharing the store falls
// back to the built-in default until the role is set again. The root role
// cannot be deleted; unknown roles fail with ErrRoleNotFound.
func (e *Engine) DeleteRole(ctx context.Context, role string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.checkWritableRole(role); err != nil {
		return err
	}
	if _, _, err := e.resolveRole(ctx, role); err != nil {
		return err
	}
	if err := e.roleStore.Delete(ctx, role); err != nil {
		return mapStoreError(err)
	}

	e.metrics.Inc(MetricRoleDeleted)
	e.emitAudit(ctx, auditEventRoleDeleted, true, "", role, "", "", nil, nil)
	return nil
}

// Roles returns every known role name (stored and built-in), sorted.
func (e *Engine) Roles(ctx context.Context) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	stored, err := e.roleStore.List(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	deleted, err := e.roleStore.Deleted(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}

	seen := make(map[string]struct{}, len(stored)+len(deleted))
	for _, name := range deleted {
		seen[name] = struct{}{}
	}
	out := make([]string, 0, len(stored)+e.roleManager.Count())
	for _, name := range append(stored, e.roleManager.Roles()...) {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

/*
====================================
OBSERVABILITY
====================================
*/

// MetricsSnapshot returns a copy of the engine counters and the Validate
// latency histogram. With metrics disabled the maps are empty.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped for backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close flushes and stops the audit dispatcher. The Redis client is owned by
// the caller and is not closed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

/*
====================================
INTERNAL
====================================
*/

func (e *Engine) isRoot(role string) bool {
	return e.rootRole != "" && role == e.rootRole
}

func (e *Engine) checkWritableRole(role string) error {
	if err := rolestore.ValidateRoleName(role); err != nil {
		return fmt.Errorf("%w: %q", ErrRoleInvalid, role)
	}
	if e.isRoot(role) {
		return fmt.Errorf("%w: %q is the root role", ErrRoleInvalid, role)
	}
	return nil
}

// resolveRole returns the current mask and version for role. Stored
// assignments win; built-in roles that were never stored report version 0.
// A deleted role never falls back to its built-in default.
func (e *Engine) resolveRole(ctx context.Context, role string) (permission.Mask64, uint32, error) {
	if e.isRoot(role) {
		mask, _ := e.roleManager.GetMask(role)
		return mask, 0, nil
	}
	if err := rolestore.ValidateRoleName(role); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrRoleInvalid, role)
	}

	mask, version, err := e.roleStore.Load(ctx, role)
	switch {
	case err == nil:
		return mask, version, nil
	case errors.Is(err, rolestore.ErrRoleDeleted):
		return 0, 0, fmt.Errorf("%w: %q", ErrRoleNotFound, role)
	case !errors.Is(err, rolestore.ErrRoleNotFound):
		return 0, 0, mapStoreError(err)
	}

	if builtin, ok := e.roleManager.GetMask(role); ok {
		return builtin, 0, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrRoleNotFound, role)
}

func (e *Engine) allowIssue(ctx context.Context, userID string) error {
	if e.limiter == nil {
		return nil
	}
	err := e.limiter.AllowIssue(ctx, userID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: %w", ErrRoleStoreUnavailable, err)
	}
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, rolestore.ErrRoleNotFound):
		return ErrRoleNotFound
	case errors.Is(err, rolestore.ErrInvalidRole):
		return ErrRoleInvalid
	default:
		return fmt.Errorf("%w: %w", ErrRoleStoreUnavailable, err)
	}
}
