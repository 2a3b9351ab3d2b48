package access

import (
	"errors"
	"strings"
	"time"

	"github.com/cmsconsole/access/rolestore"
)

// Config configures an [Engine]. Obtain a baseline from [DefaultConfig] and
// override fields before passing it to [Builder.WithConfig].
type Config struct {
	JWT            JWTConfig
	Roles          RolesConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
	Permission     PermissionConfig
	Result         ResultConfig
	RateLimit      RateLimitConfig
	ValidationMode ValidationMode
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access-token issuance.
//
// For key rotation set KeyID to the signing key's kid and list every key
// still accepted for verification in VerifyKeys (kid -> public key, or
// shared secret for hs256). Tokens then must carry a known kid.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration // 0 means 10m
	KeyID         string
	VerifyKeys    map[string][]byte
}

/*
====================================
ROLES CONFIG
====================================
*/

// RolesConfig controls role persistence.
//
// RootRole names the role that receives the reserved root bit; it is only
// honored when Permission.RootBitReserved is true.
type RolesConfig struct {
	RedisPrefix string
	SeedOnBuild bool // write builder roles to Redis when absent
	RootRole    string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// PermissionConfig controls mask layout.
type PermissionConfig struct {
	RootBitReserved bool // if true, bit 63 is root/super admin
}

// RateLimitConfig throttles IssueAccess per user ID in fixed Redis windows.
type RateLimitConfig struct {
	Enabled           bool
	MaxIssuePerWindow int
	Window            time.Duration
}

// ResultConfig controls what [AuthResult] carries.
type ResultConfig struct {
	IncludePermissions bool
}

// ValidationMode selects where Validate reads a caller's permissions from.
type ValidationMode int

const (
	// ModeInherit defers to the engine's configured mode (per-route use only).
	ModeInherit ValidationMode = -1

	// ModeJWTOnly trusts the mask embedded in the access token.
	ModeJWTOnly ValidationMode = iota
	// ModeStrict reloads the role mask from Redis and rejects tokens issued
	// against an older role version.
	ModeStrict
)

// RouteMode is the per-route override mode for Engine.Validate.
type RouteMode = ValidationMode

func (m ValidationMode) String() string {
	switch m {
	case ModeInherit:
		return "inherit"
	case ModeJWTOnly:
		return "jwt_only"
	case ModeStrict:
		return "strict"
	default:
		return "unknown"
	}
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a development-friendly baseline. JWT keys must still
// be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "cms-console",
			Leeway:        30 * time.Second,
			RequireIAT:    true,
		},
		Roles: RolesConfig{
			RedisPrefix: "acr",
			SeedOnBuild: true,
			RootRole:    "root",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Permission: PermissionConfig{
			RootBitReserved: true,
		},
		Result: ResultConfig{
			IncludePermissions: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			MaxIssuePerWindow: 30,
			Window:            time.Minute,
		},
		ValidationMode: ModeJWTOnly,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.JWT.VerifyKeys = cloneKeys(cfg.JWT.VerifyKeys)
	return out
}

func cloneKeys(keys map[string][]byte) map[string][]byte {
	if len(keys) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(keys))
	for kid, key := range keys {
		out[kid] = cloneBytes(key)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found, or nil.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 && len(c.JWT.VerifyKeys) == 0 {
		return errors.New("ed25519 requires PublicKey or VerifyKeys")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.MaxFutureIAT < 0 || c.JWT.MaxFutureIAT > 24*time.Hour {
		return errors.New("JWT MaxFutureIAT must be between 0 and 24h")
	}
	if len(c.JWT.VerifyKeys) > 0 && c.JWT.KeyID == "" {
		return errors.New("JWT VerifyKeys requires KeyID")
	}
	if c.JWT.Audience != "" && strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must not be blank")
	}

	// Roles
	if strings.TrimSpace(c.Roles.RedisPrefix) == "" {
		return errors.New("Roles RedisPrefix must not be empty")
	}
	if c.Permission.RootBitReserved && c.Roles.RootRole != "" {
		if err := rolestore.ValidateRoleName(c.Roles.RootRole); err != nil {
			return errors.New("Roles RootRole is not a valid role name")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxIssuePerWindow <= 0 {
			return errors.New("RateLimit MaxIssuePerWindow must be > 0 when enabled")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0 when enabled")
		}
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	switch c.ValidationMode {
	case ModeJWTOnly, ModeStrict:
	default:
		return ErrInvalidRouteMode
	}

	return nil
}
