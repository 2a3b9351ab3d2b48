package middleware

import (
	"context"
	"errors"
	"net/http"

	access "github.com/cmsconsole/access"
)

// RequirePermission validates the bearer token like [Guard] and then requires
// the caller to hold code. Denials answer 403.
func RequirePermission(engine *access.Engine, routeMode access.RouteMode, code access.Code) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ctx, ok := authenticate(w, r, engine, routeMode)
			if !ok {
				return
			}

			if err := engine.Authorize(ctx, res, code); err != nil {
				if errors.Is(err, access.ErrPermissionDenied) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
