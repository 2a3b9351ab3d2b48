package access

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is one finding from [Config.Lint]. Code is stable and safe to
// match on; Message is for humans.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the findings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds the findings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(hits))
	for _, w := range hits {
		msgs = append(msgs, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(msgs, "; "))
}

// Lint reports settings that are valid but risky for an admin console.
// It never fails; pair it with [Config.Validate].
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway %s exceeds 1m", c.JWT.Leeway)
	}
	if c.JWT.AccessTTL > 10*time.Minute {
		add("access_ttl_long", LintInfo, "access tokens live %s; role changes reach JWT-only routes only after expiry", c.JWT.AccessTTL)
	}
	if c.ValidationMode == ModeJWTOnly && c.JWT.AccessTTL > time.Hour {
		add("jwtonly_stale_roles", LintHigh, "JWT-only validation with a %s access TTL keeps revoked permissions usable for too long", c.JWT.AccessTTL)
	}
	if !c.JWT.RequireIAT {
		add("iat_optional", LintInfo, "tokens without an iat claim are accepted")
	}
	if c.JWT.SigningMethod == "hs256" {
		add("signing_hs256", LintInfo, "hs256 shares the signing secret with every verifier; prefer ed25519")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintWarn, "permission decisions are not audited")
	} else if !c.Audit.DropIfFull {
		add("audit_blocking", LintInfo, "audit emit blocks callers when the buffer is full")
	}
	if !c.Permission.RootBitReserved {
		add("root_bit_disabled", LintInfo, "no root role; every console operator needs explicit codes")
	}
	if !c.Roles.SeedOnBuild {
		add("seed_disabled", LintInfo, "built-in roles are not written to Redis; other instances will not see them")
	}

	return out
}
