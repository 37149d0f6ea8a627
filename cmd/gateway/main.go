// Command gateway is the single public entry point of the portfolio
// platform. It admits, verifies and routes every request to the backends.
//
// @title                       Portfolio Platform API
// @version                     1.0
// @description                 Edge API of the portfolio platform: accounts, portfolio sections and publication.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	_ "github.com/folioforge/portfolio-platform/docs"
	"github.com/folioforge/portfolio-platform/internal/api"
	"github.com/folioforge/portfolio-platform/internal/api/metrics"
	"github.com/folioforge/portfolio-platform/internal/api/middleware"
	"github.com/folioforge/portfolio-platform/internal/gateway"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/config"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/db/redis"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/keys"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/token"
	"github.com/folioforge/portfolio-platform/pkg/logger"
)

func main() {
	cfg := config.LoadGateway()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  config.IsDevelopment(cfg.Env),
		Service: "gateway",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The gateway only ever reads the public half of the signing pair.
	pub, err := keys.NewManager(keys.Paths{
		Private: cfg.JWT.PrivateKeyPath,
		Public:  cfg.JWT.PublicKeyPath,
	}).PublicKey()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load token public key")
	}
	verifier, err := token.NewVerifier(pub, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token verifier")
	}

	var rdb *goredis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable")
		} else {
			defer rdb.Close()
		}
	}

	var limiter middleware.RateLimitStore
	switch cfg.RateLimit.Backend {
	case "redis":
		if rdb == nil {
			log.Fatal().Msg("RATE_LIMIT_BACKEND=redis requires a reachable REDIS_ADDR")
		}
		limiter = redis.NewFixedWindowLimiter(rdb, cfg.RateLimit.Points, cfg.RateLimit.Duration, log, metrics.RateLimitStoreErrorsTotal.Inc)
	default:
		mem := middleware.NewFixedWindowStore(cfg.RateLimit.Points, cfg.RateLimit.Duration)
		go mem.RunJanitor(ctx, cfg.RateLimit.Duration)
		limiter = mem
	}
	log.Info().
		Str("backend", cfg.RateLimit.Backend).
		Int("points", cfg.RateLimit.Points).
		Dur("window", cfg.RateLimit.Duration).
		Msg("rate limiting enabled")

	e, err := gateway.NewServer(gateway.Options{
		Config:   cfg,
		Verifier: verifier,
		Limiter:  limiter,
		Redis:    rdb,
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build gateway")
	}

	if err := api.Serve(ctx, e, ":"+cfg.Port, log); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
