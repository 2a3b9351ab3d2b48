package access

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventTokenIssued       = "token_issued"
	auditEventTokenRejected     = "token_rejected"
	auditEventPermissionGranted = "permission_granted"
	auditEventPermissionDenied  = "permission_denied"
	auditEventRoleUpdated       = "role_updated"
	auditEventRoleRejected      = "role_update_rejected"
	auditEventRoleDeleted       = "role_deleted"
)

// AuditErrorCode is the stable error classification written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrPermissionDenied   AuditErrorCode = "permission_denied"
	auditErrPermissionNotFound AuditErrorCode = "permission_not_found"
	auditErrRoleNotFound       AuditErrorCode = "role_not_found"
	auditErrRoleInvalid        AuditErrorCode = "role_invalid"
	auditErrRoleVersionStale   AuditErrorCode = "role_version_stale"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	role string,
	perm string,
	tokenID string,
	err error,
	metadata map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		UserID:     userID,
		Role:       role,
		Permission: perm,
		TokenID:    tokenID,
		RequestID:  requestIDFromContext(ctx),
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, ErrPermissionNotFound):
		return auditErrPermissionNotFound
	case errors.Is(err, ErrRoleNotFound):
		return auditErrRoleNotFound
	case errors.Is(err, ErrRoleInvalid):
		return auditErrRoleInvalid
	case errors.Is(err, ErrRoleVersionStale):
		return auditErrRoleVersionStale
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRoleStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
