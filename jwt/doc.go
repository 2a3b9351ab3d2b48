// Package jwt issues and verifies admin console access tokens. Each token
// carries the caller's role and the permission mask granted to that role at
// issue time, so route guards can authorize without a store round-trip.
package jwt
