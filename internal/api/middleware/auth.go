package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/folioforge/portfolio-platform/internal/api/metrics"
	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/core/ports"
)

// Auth verifies the bearer token and propagates the caller identity. On
// success the request carries freshly set x-user-* headers (any values sent
// by the caller are discarded) and the identity is stored on the context.
// Every failure is domain.ErrUnauthenticated.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			raw, ok := BearerToken(req.Header.Get(echo.HeaderAuthorization))
			if !ok {
				metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
				return domain.ErrUnauthenticated
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
				return err
			}

			id := &domain.Identity{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}
			setIdentityHeaders(req.Header, id)
			SetIdentity(c, id)

			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header. The scheme is
// matched case-insensitively.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", false
	}
	return tok, true
}
