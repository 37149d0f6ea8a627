package ports

import "github.com/folioforge/portfolio-platform/internal/core/domain"

// TokenIssuer mints signed access tokens. Only the auth service holds one.
type TokenIssuer interface {
	Issue(claims domain.Claims) (string, error)
}

// TokenVerifier validates an access token and returns its claims. Every
// failure is reported as domain.ErrUnauthenticated.
type TokenVerifier interface {
	Verify(token string) (*domain.Claims, error)
}
