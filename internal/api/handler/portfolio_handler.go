package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/folioforge/portfolio-platform/internal/api/middleware"
	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/core/ports"
)

const fallbackFrontendURL = "http://localhost:5173"

type PortfolioHandler struct {
	service     ports.PortfolioService
	frontendURL string
}

// NewPortfolioHandler builds public URLs under frontendURL. When it is empty
// the base is inferred from each request.
func NewPortfolioHandler(service ports.PortfolioService, frontendURL string) *PortfolioHandler {
	return &PortfolioHandler{service: service, frontendURL: strings.TrimSpace(frontendURL)}
}

// userID accepts both JSON strings and numbers.
type userID string

func (u *userID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*u = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*u = userID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*u = userID(n.String())
	return nil
}

type publishRequest struct {
	UserID      userID `json:"userId"      validate:"required"`
	IsPublished *bool  `json:"isPublished" validate:"required"`
}

type statusResponse struct {
	IsPublished bool    `json:"isPublished"`
	PublicSlug  *string `json:"publicSlug"`
	PublicURL   *string `json:"publicUrl"`
}

type publishResponse struct {
	Success bool `json:"success"`
	statusResponse
}

type slugResponse struct {
	UserID      string `json:"userId"`
	IsPublished bool   `json:"isPublished"`
}

// BySlug resolves a public slug to its owner.
//
// @Summary      Resolve a public slug
// @Tags         portfolio
// @Produce      json
// @Param        slug  path      string  true  "Public slug"
// @Success      200   {object}  slugResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /portfolio/slug/{slug} [get]
func (h *PortfolioHandler) BySlug(c echo.Context) error {
	owner, err := h.service.ResolveSlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, slugResponse{UserID: owner, IsPublished: true})
}

// Status reports a tenant's publication state to the tenant or an ADMIN.
//
// @Summary      Publication status
// @Tags         portfolio
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "Tenant id"
// @Success      200     {object}  statusResponse
// @Failure      400     {object}  api.ErrorResponse
// @Failure      403     {object}  api.ErrorResponse
// @Router       /admin/portfolio/status/{userId} [get]
func (h *PortfolioHandler) Status(c echo.Context) error {
	p, err := h.service.Status(c.Request().Context(), middleware.IdentityFrom(c), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.status(c, p))
}

// Publish publishes or un-publishes a tenant's portfolio. Callers may only
// change their own portfolio unless they are ADMIN.
//
// @Summary      Publish or un-publish
// @Tags         portfolio
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      publishRequest  true  "Target state"
// @Success      200   {object}  publishResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Router       /portfolio/publish [post]
func (h *PortfolioHandler) Publish(c echo.Context) error {
	var req publishRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.service.Publish(c.Request().Context(), middleware.IdentityFrom(c), string(req.UserID), *req.IsPublished)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, publishResponse{Success: true, statusResponse: h.status(c, p)})
}

func (h *PortfolioHandler) status(c echo.Context, p *domain.Portfolio) statusResponse {
	resp := statusResponse{IsPublished: p.IsPublished, PublicSlug: p.PublicSlug}
	if p.PublicSlug != nil && *p.PublicSlug != "" {
		u := h.baseURL(c.Request()) + "/p/" + *p.PublicSlug
		resp.PublicURL = &u
	}
	return resp
}

// baseURL prefers the configured frontend, then the caller's Origin, then the
// forwarded or direct host of the request.
func (h *PortfolioHandler) baseURL(r *http.Request) string {
	if h.frontendURL != "" {
		return strings.TrimRight(h.frontendURL, "/")
	}
	if origin := strings.TrimSpace(r.Header.Get(echo.HeaderOrigin)); origin != "" {
		return strings.TrimRight(origin, "/")
	}

	host := firstValue(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = firstValue(r.Host)
	}
	if host == "" {
		return fallbackFrontendURL
	}

	proto := firstValue(r.Header.Get(echo.HeaderXForwardedProto))
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	return proto + "://" + host
}

func firstValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}
