package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

func TestRequireRole_Allows(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	SetIdentity(c, &domain.Identity{UserID: "a", Role: domain.RoleAdmin})

	called := false
	handler := RequireRole(domain.RoleAdmin)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
}

func TestRequireRole_Forbids(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	SetIdentity(c, &domain.Identity{UserID: "u", Role: domain.RoleUser})

	handler := RequireRole(domain.RoleAdmin)(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})

	if err := handler(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireRole_Anonymous(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	handler := RequireRole(domain.RoleAdmin)(func(c echo.Context) error { return nil })
	if err := handler(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRequireIdentity(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())

	handler := RequireIdentity()(func(c echo.Context) error { return nil })
	if err := handler(c); !errors.Is(err, domain.ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}

	SetIdentity(c, &domain.Identity{UserID: "u", Role: domain.RoleUser})
	if err := handler(c); err != nil {
		t.Fatalf("expected pass with identity, got %v", err)
	}
}
