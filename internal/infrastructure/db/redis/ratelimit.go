package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	rateLimitPrefix = "ratelimit:"
	// limiterTimeout bounds the store round trip on the request path.
	limiterTimeout = 250 * time.Millisecond
)

// fixedWindowScript increments the caller's counter and starts the window
// expiry on the first hit. It returns the count and the remaining window in
// milliseconds.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// FixedWindowLimiter shares rate-limit counters across gateway replicas.
// Key format: ratelimit:<caller ip>
//
// A Redis failure admits the request.
type FixedWindowLimiter struct {
	client  *redis.Client
	points  int64
	window  time.Duration
	timeout time.Duration
	log     zerolog.Logger
	onError func()
}

// NewFixedWindowLimiter creates a limiter admitting points requests per window.
// onError, when non-nil, is called for every store failure.
func NewFixedWindowLimiter(client *redis.Client, points int, window time.Duration, log zerolog.Logger, onError func()) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		client:  client,
		points:  int64(points),
		window:  window,
		timeout: limiterTimeout,
		log:     log,
		onError: onError,
	}
}

// Allow satisfies echo's RateLimiterStore.
func (l *FixedWindowLimiter) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	count, _, err := l.hit(ctx, identifier)
	if err != nil {
		l.failed(identifier, err)
		return true, nil
	}
	return count <= l.points, nil
}

// RetryAfter returns the time left in identifier's window.
func (l *FixedWindowLimiter) RetryAfter(identifier string) time.Duration {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	ttl, err := l.client.PTTL(ctx, l.key(identifier)).Result()
	if err != nil || ttl < 0 {
		return l.window
	}
	return ttl
}

func (l *FixedWindowLimiter) hit(ctx context.Context, identifier string) (int64, time.Duration, error) {
	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.key(identifier)}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("rate limit script: unexpected result length %d", len(res))
	}
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}

func (l *FixedWindowLimiter) failed(identifier string, err error) {
	if l.onError != nil {
		l.onError()
	}
	l.log.Warn().Err(err).Str("caller", identifier).Msg("rate limit store unavailable, admitting request")
}

func (l *FixedWindowLimiter) key(identifier string) string {
	return rateLimitPrefix + identifier
}
