package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/folioforge/portfolio-platform/pkg/logger"
)

// RequestLogger writes one structured line per request with the trace id.
// 5xx responses log at error, 4xx at warn. Health probes are not logged.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/health")
		},
		HandleError:  true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			l := logger.WithTrace(log, TraceIDFrom(c))

			var ev *zerolog.Event
			switch {
			case v.Status >= 500:
				ev = l.Error()
			case v.Status >= 400:
				ev = l.Warn()
			default:
				ev = l.Info()
			}
			if v.Error != nil {
				ev = ev.Err(v.Error)
			}
			if id := IdentityFrom(c); id != nil {
				ev = ev.Str("user_id", id.UserID)
			}

			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
