package access

import "time"

// SecurityReport summarizes the engine's effective access-control posture.
type SecurityReport struct {
	SigningAlgorithm string
	ValidationMode   ValidationMode
	StrictMode       bool
	AccessTTL        time.Duration
	RootTokenTTL     time.Duration
	RootRole         string
	CatalogueSize    int
	BuiltinRoles     int
	AuditEnabled     bool
	MetricsEnabled   bool
	LintHigh         int
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	rootTTL := time.Duration(0)
	if e.rootRole != "" {
		rootTTL = min(e.config.JWT.AccessTTL, 2*time.Minute)
	}

	return SecurityReport{
		SigningAlgorithm: e.config.JWT.SigningMethod,
		ValidationMode:   e.config.ValidationMode,
		StrictMode:       e.config.ValidationMode == ModeStrict,
		AccessTTL:        e.config.JWT.AccessTTL,
		RootTokenTTL:     rootTTL,
		RootRole:         e.rootRole,
		CatalogueSize:    CodeCount(),
		BuiltinRoles:     e.roleManager.Count(),
		AuditEnabled:     e.config.Audit.Enabled,
		MetricsEnabled:   e.config.Metrics.Enabled,
		LintHigh:         len(e.config.Lint().BySeverity(LintHigh)),
	}
}
