package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	access "github.com/cmsconsole/access"
	"github.com/google/uuid"
)

// RequestIDHeader is copied into the request context for audit events. A
// random UUID is used when the header is absent.
const RequestIDHeader = "X-Request-ID"

type authResultContextKey struct{}

func AuthResultFromContext(ctx context.Context) (*access.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*access.AuthResult)
	return res, ok
}

func Guard(engine *access.Engine, routeMode access.RouteMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ctx, ok := authenticate(w, r, engine, routeMode)
			if !ok {
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(w http.ResponseWriter, r *http.Request, engine *access.Engine, routeMode access.RouteMode) (*access.AuthResult, context.Context, bool) {
	if engine == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, nil, false
	}

	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, nil, false
	}

	ctx := requestContext(r)
	res, err := engine.Validate(ctx, token, routeMode)
	if err != nil {
		writeValidateError(w, err)
		return nil, nil, false
	}
	return res, ctx, true
}

func writeValidateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, access.ErrRoleStoreUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, access.ErrInvalidRouteMode):
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	ctx = access.WithRequestID(ctx, id)
	if ip := clientIP(r.RemoteAddr); ip != "" {
		ctx = access.WithClientIP(ctx, ip)
	}
	return ctx
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
