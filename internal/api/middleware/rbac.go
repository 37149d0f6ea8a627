package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

// RequireRole admits only identities holding one of roles. It must run after
// Auth or ForwardedIdentity; an anonymous request is unauthenticated, a
// request with the wrong role is forbidden.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFrom(c)
			if id == nil {
				return domain.ErrUnauthenticated
			}
			if _, ok := allowed[id.Role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// RequireIdentity rejects anonymous requests with domain.ErrMissingIdentity.
// Resource services use it on write routes.
func RequireIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IdentityFrom(c) == nil {
				return domain.ErrMissingIdentity
			}
			return next(c)
		}
	}
}
