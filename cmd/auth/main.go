// Command auth issues identity tokens: signup, login and the key set the
// gateway verifies against.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/folioforge/portfolio-platform/internal/api"
	"github.com/folioforge/portfolio-platform/internal/core/service"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/config"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/db/mongo"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/keys"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/token"
	"github.com/folioforge/portfolio-platform/pkg/logger"
)

func main() {
	cfg := config.LoadAuth()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  config.IsDevelopment(cfg.Env),
		Service: "auth",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	priv, pub, err := keys.NewManager(keys.Paths{
		Private: cfg.JWT.PrivateKeyPath,
		Public:  cfg.JWT.PublicKeyPath,
	}).Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load signing keys")
	}
	issuer, err := token.NewIssuer(priv, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token issuer")
	}
	verifier, err := token.NewVerifier(pub, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token verifier")
	}

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "auth"})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	defer func() {
		if err := mongo.Disconnect(client); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	users := mongo.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create user indexes")
	}

	authService := service.NewAuthService(users, issuer, cfg.AdminEmail, cfg.BcryptCost, log)
	e := api.NewAuthRouter(api.AuthDeps{
		Service:  authService,
		Keys:     issuer,
		Verifier: verifier,
		DB:       db,
	}, log)

	if err := api.Serve(ctx, e, ":"+cfg.Port, log); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
