package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/folioforge/portfolio-platform/internal/api"
	"github.com/folioforge/portfolio-platform/internal/api/handler"
	"github.com/folioforge/portfolio-platform/internal/api/middleware"
	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/core/ports"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/config"
)

// Options wires a gateway. Zero values fall back to the defaults derived
// from Config.
type Options struct {
	Config   *config.Gateway
	Routes   []Route
	Verifier ports.TokenVerifier
	Limiter  middleware.RateLimitStore
	// Redis is probed by the readiness check when set.
	Redis     *redis.Client
	Transport http.RoundTripper

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Logger     zerolog.Logger
}

// NewServer builds the gateway. Every request passes, in order: recover,
// CORS, rate limit, timeout, trace id, request log, then the route, where
// protected routes verify the token before the proxy runs.
func NewServer(opts Options) (*echo.Echo, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("gateway: config is required")
	}
	routes := opts.Routes
	if routes == nil {
		routes = DefaultRoutes(cfg.Services)
	}
	if err := Validate(routes); err != nil {
		return nil, err
	}
	if opts.Verifier == nil {
		return nil, errors.New("gateway: token verifier is required")
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewFixedWindowStore(cfg.RateLimit.Points, cfg.RateLimit.Duration)
	}
	transport := opts.Transport
	if transport == nil {
		transport = NewTransport()
	}
	registerer, gatherer := opts.Registerer, opts.Gatherer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	log := opts.Logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(log)
	extractor, err := ipExtractor(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	e.IPExtractor = extractor

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.TraceHeader},
		ExposeHeaders: []string{middleware.TraceHeader, echo.HeaderRetryAfter},
	}))
	e.Use(middleware.RateLimit(limiter))
	e.Use(echomiddleware.ContextTimeoutWithConfig(echomiddleware.ContextTimeoutConfig{
		Timeout: cfg.RequestTimeout,
		ErrorHandler: func(err error, c echo.Context) error {
			if errors.Is(err, context.DeadlineExceeded) {
				return domain.ErrUpstreamTimeout
			}
			return err
		},
	}))
	e.Use(middleware.TraceID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "edge",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/metrics" || strings.HasPrefix(p, "/health")
		},
	}))
	e.Use(echomiddleware.BodyLimit("1M"))

	// --- Gateway-local endpoints ---
	e.GET("/health", handler.NewHealthHandler("gateway").Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(nil, opts.Redis, log).Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Proxied routes ---
	auth := middleware.Auth(opts.Verifier)
	for _, r := range routes {
		p, err := NewProxy(r, transport, log)
		if err != nil {
			return nil, err
		}

		var gate []echo.MiddlewareFunc
		if r.Protected {
			gate = append(gate, auth)
		}
		e.Any(r.Prefix, p.Handle, gate...)
		e.Any(r.Prefix+"/*", p.Handle, gate...)
		for _, open := range r.Open {
			e.Any(open, p.Handle)
		}

		log.Debug().
			Str("prefix", r.Prefix).
			Str("service", r.Service).
			Str("target", r.Target+r.Rewrite).
			Bool("protected", r.Protected).
			Msg("route registered")
	}

	e.RouteNotFound("/*", func(c echo.Context) error {
		return domain.ErrRouteNotFound
	})
	return e, nil
}

// ipExtractor keys callers by peer address unless the peer is a trusted
// proxy, in which case the nearest untrusted X-Forwarded-For hop is used.
func ipExtractor(trusted []string) (echo.IPExtractor, error) {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect(), nil
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trusted {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("gateway: trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}
