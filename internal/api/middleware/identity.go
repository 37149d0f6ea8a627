package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

// Identity headers set by the gateway after token verification. Backends
// trust them only because they are reachable from the gateway alone.
const (
	HeaderUserID    = "x-user-id"
	HeaderUserEmail = "x-user-email"
	HeaderUserRole  = "x-user-role"
)

const identityKey = "identity"

var identityHeaders = []string{HeaderUserID, HeaderUserEmail, HeaderUserRole}

// StripIdentityHeaders removes every caller-supplied identity header,
// including case and prefix variants such as X-User-Id or x-user-anything.
func StripIdentityHeaders(h http.Header) {
	for k := range h {
		if strings.HasPrefix(strings.ToLower(k), "x-user-") {
			h.Del(k)
		}
	}
}

func setIdentityHeaders(h http.Header, id *domain.Identity) {
	StripIdentityHeaders(h)
	h.Set(HeaderUserID, id.UserID)
	h.Set(HeaderUserEmail, id.Email)
	h.Set(HeaderUserRole, string(id.Role))
}

// SetIdentity stores the verified identity on the request context.
func SetIdentity(c echo.Context, id *domain.Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the identity stored by Auth or ForwardedIdentity, or
// nil for anonymous requests.
func IdentityFrom(c echo.Context) *domain.Identity {
	id, _ := c.Get(identityKey).(*domain.Identity)
	return id
}

// ForwardedIdentity runs on resource services. It converts the gateway's
// identity headers into a typed domain.Identity so handlers never read the
// headers themselves. A request without x-user-id is anonymous; one with an
// id but an unknown role is rejected.
func ForwardedIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			userID := strings.TrimSpace(h.Get(HeaderUserID))
			if userID == "" {
				return next(c)
			}

			role := domain.Role(h.Get(HeaderUserRole))
			if !role.Valid() {
				return domain.ErrUnauthenticated
			}
			SetIdentity(c, &domain.Identity{
				UserID: userID,
				Email:  h.Get(HeaderUserEmail),
				Role:   role,
			})
			return next(c)
		}
	}
}
