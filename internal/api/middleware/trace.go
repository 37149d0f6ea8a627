package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// TraceHeader carries the request trace id on requests, responses and
// proxied calls.
const TraceHeader = "x-trace-id"

// TraceID assigns every request a trace id, keeping one the caller already
// sent. The id is echoed on the response and forwarded to backends.
func TraceID() echo.MiddlewareFunc {
	return echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		TargetHeader: TraceHeader,
		Generator:    func() string { return uuid.New().String() },
		RequestIDHandler: func(c echo.Context, id string) {
			c.Request().Header.Set(TraceHeader, id)
		},
	})
}

// TraceIDFrom returns the request's trace id, or "" before TraceID has run.
func TraceIDFrom(c echo.Context) string {
	if id := c.Response().Header().Get(TraceHeader); id != "" {
		return id
	}
	return c.Request().Header.Get(TraceHeader)
}
