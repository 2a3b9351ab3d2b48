// Package ginguard adapts access.Engine to gin handler chains.
//
// [Auth] validates the bearer token and stores the [access.AuthResult] on the
// gin context; [AdminRole] additionally requires one catalogue code and is
// meant to be attached per route:
//
//	admin.GET("", ginguard.AdminRole(engine, access.ModeInherit, access.AdminUserFindList), list)
//
// Failures abort the chain with a JSON body of the form
// {"code": "FORBIDDEN", "msg": "...", "data": null}.
package ginguard
