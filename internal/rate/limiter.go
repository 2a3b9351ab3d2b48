package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	Prefix            string
	MaxIssuePerWindow int
	Window            time.Duration
}

// Limiter counts token issuance per user in fixed Redis windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// AllowIssue records one issuance for userID and returns ErrRateLimited
// once the window budget is spent.
func (l *Limiter) AllowIssue(ctx context.Context, userID string) error {
	count, err := l.incrementWithTTL(ctx, l.issueKey(userID), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxIssuePerWindow) {
		return ErrRateLimited
	}
	return nil
}

// IssueCount returns the issuance counter for userID in the current window.
func (l *Limiter) IssueCount(ctx context.Context, userID string) (int, error) {
	count, err := l.redis.Get(ctx, l.issueKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// ResetIssue clears the issuance counter for userID.
func (l *Limiter) ResetIssue(ctx context.Context, userID string) error {
	if err := l.redis.Del(ctx, l.issueKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) issueKey(userID string) string {
	return l.config.Prefix + ":ri:" + userID
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
