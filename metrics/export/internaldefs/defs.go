package internaldefs

import (
	access "github.com/cmsconsole/access"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   access.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for export.
type HistogramDef struct {
	ID   access.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter. Names are shared by all exporters.
var CounterDefs = []CounterDef{
	{ID: access.MetricTokenIssued, Name: "access_token_issued_total", Help: "Access tokens issued."},
	{ID: access.MetricTokenRejected, Name: "access_token_rejected_total", Help: "Access tokens rejected by validation."},
	{ID: access.MetricPermissionGranted, Name: "access_permission_granted_total", Help: "Permission checks that passed."},
	{ID: access.MetricPermissionDenied, Name: "access_permission_denied_total", Help: "Permission checks that failed for a catalogue code."},
	{ID: access.MetricUnknownPermission, Name: "access_unknown_permission_total", Help: "Lookups of codes outside the permission catalogue."},
	{ID: access.MetricRoleUpdated, Name: "access_role_updated_total", Help: "Role permission assignments written."},
	{ID: access.MetricRoleRejected, Name: "access_role_rejected_total", Help: "Role permission assignments rejected."},
	{ID: access.MetricRoleDeleted, Name: "access_role_deleted_total", Help: "Roles deleted."},
	{ID: access.MetricRoleVersionStale, Name: "access_role_version_stale_total", Help: "Strict-mode rejections of tokens issued against an older role version."},
}

var HistogramDefs = []HistogramDef{
	{ID: access.MetricValidateLatency, Name: "access_validate_latency_seconds", Help: "Token validation latency."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the
// engine's in-process histogram.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.005",
	"0.025",
	"+Inf",
}

var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_005",
	"0_025",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets and ignoring extras.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
