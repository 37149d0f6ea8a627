package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/folioforge/portfolio-platform/internal/api/metrics"
	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

// UnknownIP keys every caller whose address cannot be determined. Those
// callers share one bucket.
const UnknownIP = "unknown-ip"

// RateLimitStore decides admission per caller key. Allow follows echo's
// RateLimiterStore contract; RetryAfter reports when the caller's current
// window ends.
type RateLimitStore interface {
	echomiddleware.RateLimiterStore
	RetryAfter(identifier string) time.Duration
}

// RateLimit admits at most the store's budget per caller ip. Health probes
// and CORS preflight requests are never counted.
func RateLimit(store RateLimitStore) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Skipper: skipRateLimit,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return callerKey(c), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify caller").SetInternal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			metrics.RateLimitRejectionsTotal.Inc()
			retry := store.RetryAfter(identifier)
			secs := int(math.Ceil(retry.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			return domain.ErrRateLimited
		},
	})
}

func skipRateLimit(c echo.Context) bool {
	if c.Request().Method == http.MethodOptions {
		return true
	}
	return strings.HasPrefix(c.Request().URL.Path, "/health")
}

func callerKey(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return UnknownIP
}

// FixedWindowStore is the in-process limiter: each key may be admitted
// points times per window, counted from the first request of the window.
// Buckets lock independently so unrelated callers never contend.
type FixedWindowStore struct {
	points int
	window time.Duration
	now    func() time.Time

	buckets sync.Map // string -> *windowBucket
}

type windowBucket struct {
	mu      sync.Mutex
	used    int
	resetAt time.Time
}

// NewFixedWindowStore returns a store admitting points requests per window.
func NewFixedWindowStore(points int, window time.Duration) *FixedWindowStore {
	return &FixedWindowStore{points: points, window: window, now: time.Now}
}

// Allow consumes one unit from identifier's bucket.
func (s *FixedWindowStore) Allow(identifier string) (bool, error) {
	now := s.now()
	v, _ := s.buckets.LoadOrStore(identifier, &windowBucket{resetAt: now.Add(s.window)})
	b := v.(*windowBucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	if !now.Before(b.resetAt) {
		b.used = 0
		b.resetAt = now.Add(s.window)
	}
	if b.used >= s.points {
		return false, nil
	}
	b.used++
	return true, nil
}

// RetryAfter returns the time left in identifier's window, or zero when the
// caller has no active window.
func (s *FixedWindowStore) RetryAfter(identifier string) time.Duration {
	v, ok := s.buckets.Load(identifier)
	if !ok {
		return 0
	}
	b := v.(*windowBucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	if d := b.resetAt.Sub(s.now()); d > 0 {
		return d
	}
	return 0
}

// Sweep drops buckets whose window has ended. An evicted caller starts a
// fresh window on its next request, which is what it would get anyway.
func (s *FixedWindowStore) Sweep() int {
	now := s.now()
	removed := 0
	s.buckets.Range(func(key, value any) bool {
		b := value.(*windowBucket)
		b.mu.Lock()
		expired := !now.Before(b.resetAt)
		b.mu.Unlock()
		if expired {
			s.buckets.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (s *FixedWindowStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
