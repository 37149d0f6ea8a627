// Command sections serves the tenant-scoped portfolio sections behind the
// gateway.
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
	"github.com/folioforge/portfolio-platform/pkg/logger"
)

func main() {
	cfg := config.LoadSections()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  config.IsDevelopment(cfg.Env),
		Service: "sections",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "sections"})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	defer func() {
		if err := mongo.Disconnect(client); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	repo := mongo.NewSectionRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create section indexes")
	}

	e := api.NewSectionsRouter(service.NewSectionService(repo, log), db, log)
	if err := api.Serve(ctx, e, ":"+cfg.Port, log); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
