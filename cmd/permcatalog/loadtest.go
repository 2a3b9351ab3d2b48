package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	access "github.com/cmsconsole/access"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type loadtestOptions struct {
	users       int
	ops         int
	concurrency int
	mode        access.RouteMode
	redisAddr   string
}

func runLoadtest(args []string, stdout io.Writer, log logrus.FieldLogger) int {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		users       = fs.Int("users", 1000, "number of access tokens to issue")
		ops         = fs.Int("ops", 100000, "validate+authorize operations to run")
		concurrency = fs.Int("concurrency", 64, "number of concurrent workers")
		mode        = fs.String("mode", "jwt", "validation mode: jwt or strict")
		redisAddr   = fs.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	if err := fs.Parse(args); err != nil {
		log.WithFields(logrus.Fields{"err": err}).Error("invalid loadtest flags")
		return exitUsage
	}
	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		log.Error("users, concurrency, and ops must be > 0")
		return exitUsage
	}

	opts := loadtestOptions{
		users:       *users,
		ops:         *ops,
		concurrency: *concurrency,
		redisAddr:   *redisAddr,
	}
	switch *mode {
	case "jwt":
		opts.mode = access.ModeJWTOnly
	case "strict":
		opts.mode = access.ModeStrict
	default:
		log.WithFields(logrus.Fields{"mode": *mode}).Error("unknown mode")
		return exitUsage
	}
	if opts.redisAddr == "" {
		opts.redisAddr = os.Getenv("REDIS_ADDR")
	}

	stats, err := loadtest(context.Background(), opts, log)
	if err != nil {
		log.WithFields(logrus.Fields{"err": err}).Error("loadtest failed")
		return exitInvalid
	}

	printStats(stdout, "authorize/"+opts.mode.String(), stats)
	return exitOK
}

func loadtest(ctx context.Context, opts loadtestOptions, log logrus.FieldLogger) (phaseStats, error) {
	var client redis.UniversalClient
	if opts.redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return phaseStats{}, fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		opts.redisAddr = mr.Addr()
		log.WithFields(logrus.Fields{"addr": opts.redisAddr}).Info("using miniredis")
	} else {
		log.WithFields(logrus.Fields{"addr": opts.redisAddr}).Info("using redis")
	}
	client = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{opts.redisAddr},
	})
	defer client.Close()

	cfg := access.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("permcatalog-loadtest-signing-secret")
	cfg.Roles.RedisPrefix = "acr-loadtest"
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := access.New().
		WithConfig(cfg).
		WithRedis(client).
		WithRoles(loadtestRoles()).
		Build()
	if err != nil {
		return phaseStats{}, err
	}
	defer engine.Close()

	roles := []string{"news_editor", "user_admin", "auditor"}
	tokens := make([]string, opts.users)
	start := time.Now()
	for i := range tokens {
		tok, err := engine.IssueAccess(ctx, fmt.Sprintf("u-%d", i), roles[i%len(roles)])
		if err != nil {
			return phaseStats{}, err
		}
		tokens[i] = tok
	}
	log.WithFields(logrus.Fields{"tokens": opts.users, "took": time.Since(start).Round(time.Millisecond)}).Info("issued tokens")

	return runAuthorizePhase(ctx, engine, tokens, opts), nil
}

func loadtestRoles() map[string][]string {
	return map[string][]string{
		"news_editor": {
			"admin:news:find:list",
			"admin:news:find:detail",
			"admin:news:create",
			"admin:news:update:info",
		},
		"user_admin": {
			"admin:user:find:list",
			"admin:user:create",
			"admin:user:update:info",
			"admin:user:update:status",
		},
		"auditor": {
			"admin:c_user:find:list",
			"admin:user:find:list",
			"admin:role:find:list",
			"admin:news:find:list",
		},
	}
}

func runAuthorizePhase(ctx context.Context, engine *access.Engine, tokens []string, opts loadtestOptions) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		denied    int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	codes := access.Codes()
	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= opts.ops {
					return
				}
				tok := tokens[r.Intn(len(tokens))]
				code := codes[r.Intn(len(codes))]

				t0 := time.Now()
				res, err := engine.Validate(ctx, tok, opts.mode)
				if err == nil {
					if engine.Authorize(ctx, res, code) != nil {
						atomic.AddInt64(&denied, 1)
					}
				}
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	stats := computeStats(time.Since(start), latencies, failures)
	stats.denied = denied
	return stats
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	denied   int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d denied=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.denied,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
