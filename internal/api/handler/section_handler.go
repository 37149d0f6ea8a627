package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/folioforge/portfolio-platform/internal/api/middleware"
	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/core/ports"
)

// SectionHandler serves one portfolio section. Records are free-form JSON
// objects; the response flattens them with id, userId and timestamps.
type SectionHandler struct {
	service ports.SectionService
	section domain.Section
}

func NewSectionHandler(service ports.SectionService, section domain.Section) *SectionHandler {
	return &SectionHandler{service: service, section: section}
}

// List handles GET /{section}.
//
// @Summary      List section records
// @Description  Reads the tenant named by userId, else the caller, else the seed content.
// @Tags         sections
// @Produce      json
// @Param        section  path      string  true   "Section name"
// @Param        userId   query     string  false  "Tenant to read"
// @Success      200      {array}   map[string]any
// @Failure      404      {object}  api.ErrorResponse
// @Router       /{section} [get]
func (h *SectionHandler) List(c echo.Context) error {
	records, err := h.service.List(c.Request().Context(), h.section, middleware.IdentityFrom(c), explicitTenant(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, flattenAll(records))
}

// Get handles GET /{section}/:id.
//
// @Summary      Get a section record
// @Tags         sections
// @Produce      json
// @Param        section  path      string  true   "Section name"
// @Param        id       path      string  true   "Record id"
// @Param        userId   query     string  false  "Tenant to read"
// @Success      200      {object}  map[string]any
// @Failure      404      {object}  api.ErrorResponse
// @Router       /{section}/{id} [get]
func (h *SectionHandler) Get(c echo.Context) error {
	rec, err := h.service.Get(c.Request().Context(), h.section, middleware.IdentityFrom(c), explicitTenant(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec.Flatten())
}

// Create handles POST /{section}. The record is owned by the caller.
//
// @Summary      Create a section record
// @Tags         sections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        section  path      string          true  "Section name"
// @Param        body     body      map[string]any  true  "Record fields"
// @Success      201      {object}  map[string]any
// @Failure      400      {object}  api.ErrorResponse
// @Router       /admin/{section} [post]
func (h *SectionHandler) Create(c echo.Context) error {
	fields, err := decodeObject(c)
	if err != nil {
		return err
	}

	rec, err := h.service.Create(c.Request().Context(), h.section, middleware.IdentityFrom(c), fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec.Flatten())
}

// Bulk handles PUT /{section}. Intro and about accept one object (or an
// array whose first element is used); other sections accept an array that
// replaces the caller's records.
//
// @Summary      Replace a whole section
// @Tags         sections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        section  path      string            true  "Section name"
// @Param        body     body      []map[string]any  true  "Records"
// @Success      200      {array}   map[string]any
// @Success      201      {object}  map[string]any
// @Failure      400      {object}  api.ErrorResponse
// @Router       /admin/{section} [put]
func (h *SectionHandler) Bulk(c echo.Context) error {
	items, err := decodeItems(c)
	if err != nil {
		return err
	}

	records, created, err := h.service.Bulk(c.Request().Context(), h.section, middleware.IdentityFrom(c), items)
	if err != nil {
		return err
	}

	if h.section.Singleton() {
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		return c.JSON(status, records[0].Flatten())
	}
	return c.JSON(http.StatusOK, flattenAll(records))
}

// Update handles PUT /{section}/:id.
//
// @Summary      Update a section record
// @Tags         sections
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        section  path      string          true  "Section name"
// @Param        id       path      string          true  "Record id"
// @Param        body     body      map[string]any  true  "Fields to set"
// @Success      200      {object}  map[string]any
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /admin/{section}/{id} [put]
func (h *SectionHandler) Update(c echo.Context) error {
	fields, err := decodeObject(c)
	if err != nil {
		return err
	}

	rec, err := h.service.Update(c.Request().Context(), h.section, middleware.IdentityFrom(c), c.Param("id"), fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec.Flatten())
}

// Delete handles DELETE /{section}/:id.
//
// @Summary      Delete a section record
// @Tags         sections
// @Security     BearerAuth
// @Param        section  path  string  true  "Section name"
// @Param        id       path  string  true  "Record id"
// @Success      204
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /admin/{section}/{id} [delete]
func (h *SectionHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), h.section, middleware.IdentityFrom(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func explicitTenant(c echo.Context) string {
	return strings.TrimSpace(c.QueryParam("userId"))
}

func flattenAll(records []*domain.Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, r.Flatten())
	}
	return out
}

func decodeBody(c echo.Context) (any, error) {
	var body any
	if err := c.Echo().JSONSerializer.Deserialize(c, &body); err != nil {
		return nil, fmt.Errorf("%w: invalid payload", domain.ErrInvalidInput)
	}
	return body, nil
}

func decodeObject(c echo.Context) (map[string]any, error) {
	body, err := decodeBody(c)
	if err != nil {
		return nil, err
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: body must be a JSON object", domain.ErrInvalidInput)
	}
	return obj, nil
}

func decodeItems(c echo.Context) ([]map[string]any, error) {
	body, err := decodeBody(c)
	if err != nil {
		return nil, err
	}

	switch v := body.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		items := make([]map[string]any, 0, len(v))
		for i, el := range v {
			obj, ok := el.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: item %d is not a JSON object", domain.ErrInvalidInput, i)
			}
			items = append(items, obj)
		}
		return items, nil
	}
	return nil, fmt.Errorf("%w: body must be a JSON object or array", domain.ErrInvalidInput)
}
