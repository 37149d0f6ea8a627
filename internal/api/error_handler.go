package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/folioforge/portfolio-platform/internal/api/middleware"
	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/pkg/logger"
)

const missingTraceID = "N/A"

type errorBody struct {
	Message string `json:"message"`
	TraceID string `json:"traceId"`
}

// ErrorResponse is the canonical error envelope for all API errors.
type ErrorResponse struct {
	Error errorBody `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": {"message", "traceId"}}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		traceID := middleware.TraceIDFrom(c)
		code, msg := resolveError(err, logger.WithTrace(log, traceID), c)
		if traceID == "" {
			traceID = missingTraceID
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, ErrorResponse{Error: errorBody{Message: msg, TraceID: traceID}})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError && he.Internal != nil {
			logUnexpected(log, he.Internal, c)
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		// Verification causes stay in logs; callers get one message.
		log.Debug().Err(err).Msg("authentication failed")
		return http.StatusUnauthorized, domain.ErrUnauthenticated.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, domain.ErrRateLimited.Error()
	case errors.Is(err, domain.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, domain.ErrUpstreamTimeout.Error()
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway, domain.ErrUpstreamUnavailable.Error()
	case errors.Is(err, domain.ErrRouteNotFound):
		return http.StatusNotFound, domain.ErrRouteNotFound.Error()
	case errors.Is(err, domain.ErrSlugNotFound):
		return http.StatusNotFound, domain.ErrSlugNotFound.Error()
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownSection):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, domain.ErrUserExists.Error()
	case errors.Is(err, domain.ErrSlugTaken):
		return http.StatusConflict, domain.ErrSlugTaken.Error()
	case errors.Is(err, domain.ErrMissingIdentity):
		return http.StatusBadRequest, domain.ErrMissingIdentity.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	logUnexpected(log, err, c)
	return http.StatusInternalServerError, "internal server error"
}

func logUnexpected(log zerolog.Logger, err error, c echo.Context) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")
}
