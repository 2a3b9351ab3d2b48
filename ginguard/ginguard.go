package ginguard

import (
	"context"
	"errors"
	"net/http"
	"strings"

	access "github.com/cmsconsole/access"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextKeyResult is the gin context key holding *access.AuthResult.
	ContextKeyResult = "access.result"
	// ContextKeyMode holds the access.RouteMode the stored result was validated under.
	ContextKeyMode = "access.mode"

	RequestIDHeader = "X-Request-ID"
)

// Error codes written to the "code" field of failure responses.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeUnavailable  = "UNAVAILABLE"
	CodeInternal     = "INTERNAL"
)

// Result returns the caller validated by Auth or AdminRole.
func Result(c *gin.Context) (*access.AuthResult, bool) {
	v, ok := c.Get(ContextKeyResult)
	if !ok {
		return nil, false
	}
	res, ok := v.(*access.AuthResult)
	return res, ok && res != nil
}

// Auth validates the Authorization bearer token with engine.
func Auth(engine *access.Engine, mode access.RouteMode) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authenticate(c, engine, mode); !ok {
			return
		}
		c.Next()
	}
}

// AdminRole requires the caller to hold code. A result stored by an earlier
// Auth in the chain is reused when it was validated under the same mode or
// under ModeStrict; otherwise the token is validated again under mode.
func AdminRole(engine *access.Engine, mode access.RouteMode, code access.Code) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, ok := reusableResult(c, mode)
		if !ok {
			if res, ok = authenticate(c, engine, mode); !ok {
				return
			}
		}

		if err := engine.Authorize(c.Request.Context(), res, code); err != nil {
			if errors.Is(err, access.ErrPermissionDenied) {
				abort(c, http.StatusForbidden, CodeForbidden, "missing permission "+code.String())
				return
			}
			abort(c, http.StatusInternalServerError, CodeInternal, "permission check failed")
			return
		}

		c.Next()
	}
}

func reusableResult(c *gin.Context, mode access.RouteMode) (*access.AuthResult, bool) {
	res, ok := Result(c)
	if !ok {
		return nil, false
	}
	v, ok := c.Get(ContextKeyMode)
	if !ok {
		return nil, false
	}
	prev, ok := v.(access.RouteMode)
	if !ok || (prev != mode && prev != access.ModeStrict) {
		return nil, false
	}
	return res, true
}

func authenticate(c *gin.Context, engine *access.Engine, mode access.RouteMode) (*access.AuthResult, bool) {
	if engine == nil {
		abort(c, http.StatusUnauthorized, CodeUnauthorized, "authentication unavailable")
		return nil, false
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		abort(c, http.StatusUnauthorized, CodeUnauthorized, "no authorization token provided")
		return nil, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		abort(c, http.StatusUnauthorized, CodeUnauthorized, "invalid authorization header format")
		return nil, false
	}

	ctx := requestContext(c)
	res, err := engine.Validate(ctx, parts[1], mode)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrRoleStoreUnavailable):
			abort(c, http.StatusServiceUnavailable, CodeUnavailable, "role store unavailable")
		case errors.Is(err, access.ErrInvalidRouteMode):
			abort(c, http.StatusInternalServerError, CodeInternal, "route misconfigured")
		case errors.Is(err, access.ErrRoleVersionStale):
			abort(c, http.StatusUnauthorized, CodeUnauthorized, "role changed, sign in again")
		default:
			abort(c, http.StatusUnauthorized, CodeUnauthorized, "invalid or expired token")
		}
		return nil, false
	}

	c.Request = c.Request.WithContext(ctx)
	c.Set(ContextKeyResult, res)
	c.Set(ContextKeyMode, mode)
	return res, true
}

func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		c.Header(RequestIDHeader, id)
	}
	ctx = access.WithRequestID(ctx, id)
	if ip := c.ClientIP(); ip != "" {
		ctx = access.WithClientIP(ctx, ip)
	}
	return ctx
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code": code,
		"msg":  msg,
		"data": nil,
	})
}
