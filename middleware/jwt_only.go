package middleware

import (
	"net/http"

	access "github.com/cmsconsole/access"
)

// RequireJWTOnly guards with [access.ModeJWTOnly], trusting the mask carried
// in the token and skipping Redis.
func RequireJWTOnly(engine *access.Engine) func(http.Handler) http.Handler {
	return Guard(engine, access.ModeJWTOnly)
}
