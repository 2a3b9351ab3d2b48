package middleware

import (
	"net/http"

	access "github.com/cmsconsole/access"
)

func RequireStrict(engine *access.Engine) func(http.Handler) http.Handler {
	return Guard(engine, access.ModeStrict)
}
