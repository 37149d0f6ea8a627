// Command portfolio owns publication state and public slugs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/folioforge/portfolio-platform/internal/api"
	"github.com/folioforge/portfolio-platform/internal/api/metrics"
	"github.com/folioforge/portfolio-platform/internal/core/service"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/config"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/db/mongo"
	"github.com/folioforge/portfolio-platform/pkg/logger"
)

func main() {
	cfg := config.LoadPortfolio()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  config.IsDevelopment(cfg.Env),
		Service: "portfolio",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "portfolio"})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	defer func() {
		if err := mongo.Disconnect(client); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	portfolios := mongo.NewPortfolioRepository(db)
	if err := portfolios.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create portfolio indexes")
	}

	// Slugs derive from the tenant's intro name, read straight from the
	// sections collections.
	names := mongo.NewSectionRepository(db)

	e := api.NewPortfolioRouter(api.PortfolioDeps{
		Service:     service.NewPortfolioService(portfolios, names, metrics.PortfolioRecorder{}, log),
		FrontendURL: cfg.FrontendURL,
		DB:          db,
	}, log)

	if err := api.Serve(ctx, e, ":"+cfg.Port, log); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
