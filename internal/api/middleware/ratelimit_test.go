package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestStore(points int, window time.Duration) (*FixedWindowStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewFixedWindowStore(points, window)
	s.now = clock.Now
	return s, clock
}

func TestFixedWindowStore_AdmitsPointsThenRejects(t *testing.T) {
	s, _ := newTestStore(3, time.Minute)

	for i := 0; i < 3; i++ {
		if ok, _ := s.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if ok, _ := s.Allow("1.2.3.4"); ok {
		t.Fatalf("request 4 should be rejected")
	}
	if ok, _ := s.Allow("5.6.7.8"); !ok {
		t.Fatalf("other callers have their own bucket")
	}
}

func TestFixedWindowStore_RefillsAfterWindow(t *testing.T) {
	s, clock := newTestStore(1, time.Minute)

	if ok, _ := s.Allow("a"); !ok {
		t.Fatalf("first request should be admitted")
	}
	clock.Advance(30 * time.Second)
	if ok, _ := s.Allow("a"); ok {
		t.Fatalf("window not over yet")
	}
	if ra := s.RetryAfter("a"); ra != 30*time.Second {
		t.Fatalf("expected 30s retry-after, got %v", ra)
	}

	clock.Advance(30 * time.Second)
	if ok, _ := s.Allow("a"); !ok {
		t.Fatalf("expected full refill once the window elapsed")
	}
}

func TestFixedWindowStore_ConcurrentCallersNeverExceedBudget(t *testing.T) {
	s, _ := newTestStore(50, time.Minute)

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Allow("shared"); ok {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != 50 {
		t.Fatalf("expected exactly 50 admitted, got %d", admitted)
	}
}

func TestFixedWindowStore_Sweep(t *testing.T) {
	s, clock := newTestStore(1, time.Minute)
	s.Allow("a")
	s.Allow("b")
	clock.Advance(time.Minute)
	s.Allow("b")

	if n := s.Sweep(); n != 1 {
		t.Fatalf("expected 1 expired bucket swept, got %d", n)
	}
	if s.RetryAfter("a") != 0 {
		t.Fatalf("expected no window for swept caller")
	}
}

func rateLimitedEcho(store RateLimitStore) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if errors.Is(err, domain.ErrRateLimited) {
			_ = c.NoContent(http.StatusTooManyRequests)
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
	e.Use(RateLimit(store))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/health", ok)
	e.GET("/intro", ok)
	e.OPTIONS("/intro", ok)
	return e
}

func serve(e *echo.Echo, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_RejectsWithRetryAfter(t *testing.T) {
	store, _ := newTestStore(2, time.Minute)
	e := rateLimitedEcho(store)

	for i := 0; i < 2; i++ {
		if rec := serve(e, http.MethodGet, "/intro", "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := serve(e, http.MethodGet, "/intro", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_SkipsHealthAndPreflight(t *testing.T) {
	store, _ := newTestStore(1, time.Minute)
	e := rateLimitedEcho(store)

	for i := 0; i < 5; i++ {
		if rec := serve(e, http.MethodGet, "/health", "10.0.0.2"); rec.Code != http.StatusOK {
			t.Fatalf("health must never be limited, got %d", rec.Code)
		}
		if rec := serve(e, http.MethodOptions, "/intro", "10.0.0.2"); rec.Code != http.StatusOK {
			t.Fatalf("preflight must never be limited, got %d", rec.Code)
		}
	}
	if rec := serve(e, http.MethodGet, "/intro", "10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("budget should be untouched, got %d", rec.Code)
	}
}
