package access

import (
	"context"
	"testing"
	"time"
)

// BenchmarkAuthorizeCounters measures the decision paths that feed the
// permission counters, with metrics on and off.
func BenchmarkAuthorizeCounters(b *testing.B) {
	paths := []struct {
		name string
		code string
		want MetricID
	}{
		{name: "granted", code: "admin:news:find:list", want: MetricPermissionGranted},
		{name: "denied", code: "admin:news:delete", want: MetricPermissionDenied},
		{name: "unknown", code: "admin:news:teleport", want: MetricUnknownPermission},
	}

	for _, enabled := range []bool{true, false} {
		for _, path := range paths {
			name := path.name + "/metrics=off"
			if enabled {
				name = path.name + "/metrics=on"
			}
			b.Run(name, func(b *testing.B) {
				engine, res := newMetricsBenchEngine(b, enabled)

				b.ReportAllocs()
				b.ResetTimer()
				b.RunParallel(func(pb *testing.PB) {
					ctx := context.Background()
					for pb.Next() {
						_ = engine.AuthorizeCode(ctx, res, path.code)
					}
				})
				b.StopTimer()

				if enabled && engine.MetricsSnapshot().Counters[path.want] == 0 {
					b.Fatalf("%s path did not reach its counter", path.name)
				}
			})
		}
	}
}

func BenchmarkValidateLatencyHistogram(b *testing.B) {
	samples := []time.Duration{
		40 * time.Microsecond,
		300 * time.Microsecond,
		3 * time.Millisecond,
		80 * time.Millisecond,
	}
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Observe(MetricValidateLatency, samples[i&3])
			i++
		}
	})
}

func BenchmarkMetricsSnapshot(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for id := MetricID(0); id < metricIDCount; id++ {
		m.Inc(id)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if s := m.Snapshot(); len(s.Counters) != int(metricIDCount) {
			b.Fatalf("snapshot has %d counters", len(s.Counters))
		}
	}
}

func newMetricsBenchEngine(b *testing.B, metrics bool) (*Engine, *AuthResult) {
	b.Helper()

	_, rdb := newTestRedis(b)
	cfg := testConfig()
	cfg.Metrics.Enabled = metrics
	engine := buildTestEngine(b, cfg, rdb, nil)

	token, err := engine.IssueAccess(context.Background(), "bench", "editor")
	if err != nil {
		b.Fatalf("IssueAccess: %v", err)
	}
	res, err := engine.Validate(context.Background(), token, ModeJWTOnly)
	if err != nil {
		b.Fatalf("Validate: %v", err)
	}
	return engine, res
}
