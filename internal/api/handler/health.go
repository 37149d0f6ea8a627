package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/folioforge/portfolio-platform/internal/api/middleware"
	"github.com/folioforge/portfolio-platform/pkg/logger"
)

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	service string
}

func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "UP",
		"service": h.service,
	})
}

// ReadinessHandler handles GET /health/ready. Only the dependencies a binary
// was started with are checked; a nil client is skipped. Failure details go
// to the log, the response carries status words only.
type ReadinessHandler struct {
	mongo *mongo.Database
	redis *redis.Client
	log   zerolog.Logger
}

func NewReadinessHandler(db *mongo.Database, rdb *redis.Client, log zerolog.Logger) *ReadinessHandler {
	return &ReadinessHandler{mongo: db, redis: rdb, log: log}
}

type dependencyStatus struct {
	Status string `json:"status"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *ReadinessHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus)
	healthy := true
	log := logger.WithTrace(h.log, middleware.TraceIDFrom(c))

	if h.mongo != nil {
		if err := h.mongo.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
			log.Warn().Err(err).Str("dependency", "mongodb").Msg("readiness check failed")
			deps["mongodb"] = dependencyStatus{Status: "unhealthy"}
			healthy = false
		} else {
			deps["mongodb"] = dependencyStatus{Status: "ok"}
		}
	}

	if h.redis != nil {
		if _, err := h.redis.Ping(ctx).Result(); err != nil {
			log.Warn().Err(err).Str("dependency", "redis").Msg("readiness check failed")
			deps["redis"] = dependencyStatus{Status: "unhealthy"}
			healthy = false
		} else {
			deps["redis"] = dependencyStatus{Status: "ok"}
		}
	}

	status := "UP"
	httpStatus := http.StatusOK
	if !healthy {
		status = "DEGRADED"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
