package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/folioforge/portfolio-platform/internal/api/handler"
	"github.com/folioforge/portfolio-platform/internal/api/middleware"
	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/core/ports"
)

// NewEcho returns an Echo instance with the shared error handler, validator
// and base middleware every binary runs.
func NewEcho(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(middleware.TraceID())
	e.Use(middleware.RequestLogger(log))
	return e
}

func registerHealth(e *echo.Echo, service string, db *mongo.Database, log zerolog.Logger) {
	e.GET("/health", handler.NewHealthHandler(service).Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(db, nil, log).Readiness)
}

// AuthDeps wires the auth service router.
type AuthDeps struct {
	Service  ports.AuthService
	Keys     handler.KeySet
	Verifier ports.TokenVerifier
	DB       *mongo.Database
}

// NewAuthRouter serves signup, login and the token-protected account routes.
// The service verifies tokens itself on /auth/me and /auth/users rather than
// trusting forwarded headers.
func NewAuthRouter(d AuthDeps, log zerolog.Logger) *echo.Echo {
	e := NewEcho(log)
	h := handler.NewAuthHandler(d.Service, d.Keys)
	auth := middleware.Auth(d.Verifier)

	e.POST("/auth/signup", h.Signup)
	e.POST("/auth/login", h.Login)
	e.GET("/auth/me", h.Me, auth)
	e.GET("/auth/users", h.Users, auth, middleware.RequireRole(domain.RoleAdmin))
	e.GET("/.well-known/jwks.json", h.JWKS)

	registerHealth(e, "auth", d.DB, log)
	return e
}

// NewSectionsRouter mounts every portfolio section at /{section}. Education
// and contact also answer under /{section}/admin, the prefix the gateway
// rewrites their admin routes to.
func NewSectionsRouter(svc ports.SectionService, db *mongo.Database, log zerolog.Logger) *echo.Echo {
	e := NewEcho(log)
	e.Use(middleware.ForwardedIdentity())

	for _, s := range domain.Sections {
		h := handler.NewSectionHandler(svc, s)
		mountSection(e.Group("/"+string(s)), h)
		if s.HasAdminMount() {
			mountSection(e.Group("/"+string(s)+"/admin"), h)
		}
	}

	registerHealth(e, "sections", db, log)
	return e
}

func mountSection(g *echo.Group, h *handler.SectionHandler) {
	write := middleware.RequireIdentity()

	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create, write)
	g.PUT("", h.Bulk, write)
	g.PUT("/:id", h.Update, write)
	g.DELETE("/:id", h.Delete, write)
}

// PortfolioDeps wires the publish/slug service router.
type PortfolioDeps struct {
	Service     ports.PortfolioService
	FrontendURL string
	DB          *mongo.Database
}

// NewPortfolioRouter serves slug lookup on the public /portfolio prefix.
// Publication state is read and changed under the gateway-protected
// /admin/portfolio prefix only, so an unpublished slug never leaks to
// anonymous callers.
func NewPortfolioRouter(d PortfolioDeps, log zerolog.Logger) *echo.Echo {
	e := NewEcho(log)
	e.Use(middleware.ForwardedIdentity())
	h := handler.NewPortfolioHandler(d.Service, d.FrontendURL)

	public := e.Group("/portfolio")
	public.GET("/slug/:slug", h.BySlug)
	public.POST("/publish", h.Publish, middleware.RequireIdentity())

	admin := e.Group("/admin/portfolio", middleware.RequireIdentity())
	admin.GET("/status/:userId", h.Status)
	admin.POST("/publish", h.Publish)

	e.GET("/metrics", echoprometheus.NewHandler())
	registerHealth(e, "portfolio", d.DB, log)
	return e
}
