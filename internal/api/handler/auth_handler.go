package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/folioforge/portfolio-platform/internal/api/middleware"
	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/core/ports"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/token"
)

// KeySet publishes the verification keys of the token issuer.
type KeySet interface {
	JWKS() token.JWKSet
}

type AuthHandler struct {
	authService ports.AuthService
	keys        KeySet
}

func NewAuthHandler(authService ports.AuthService, keys KeySet) *AuthHandler {
	return &AuthHandler{authService: authService, keys: keys}
}

type signupRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
	Name     string `json:"name"     validate:"max=120"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Signup creates a new account and returns a token for it.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      409   {object}  api.ErrorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	tok, user, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{Token: tok, User: user})
}

// Login authenticates a user and returns a signed access token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	tok, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Token: tok, User: user})
}

// Me returns the account behind the bearer token.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.authService.Me(c.Request().Context(), middleware.IdentityFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Users lists every account. ADMIN only.
//
// @Summary      List users
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      401  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Router       /auth/users [get]
func (h *AuthHandler) Users(c echo.Context) error {
	users, err := h.authService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// JWKS serves the issuer's public key set.
//
// @Summary      JSON Web Key Set
// @Tags         auth
// @Produce      json
// @Success      200  {object}  token.JWKSet
// @Router       /.well-known/jwks.json [get]
func (h *AuthHandler) JWKS(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return c.JSON(http.StatusOK, h.keys.JWKS())
}
