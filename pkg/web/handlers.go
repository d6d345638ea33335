// Package web provides the HTTP JSON API of the onboarding dashboard.
package web

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/dashboard"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/filter"
)

// ViewProvider returns the view currently shown, or nil.
type ViewProvider interface {
	Current() *dashboard.View
}

type APIHandlers struct {
	views     ViewProvider
	validator *validator.Validate
}

func NewAPIHandlers(views ViewProvider, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		views:     views,
		validator: validator,
	}
}

// Register mounts every dashboard route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/state", h.GetState)
	router.Get("/cases", h.GetCases)
	router.Put("/query", h.SetQuery)

	f := router.Group("/filters")
	f.Post("/", h.ToggleFilter)
	f.Delete("/", h.ClearFilters)

	s := router.Group("/sessions")
	s.Get("/", h.GetSession)
	s.Post("/", h.OpenSession)
	s.Delete("/", h.CloseSession)

	router.Post("/entities/:key/reconcile", h.Reconcile)
	router.Post("/notifications/:id/read", h.MarkNotificationRead)
}

func (h *APIHandlers) view(c fiber.Ctx) (*dashboard.View, error) {
	v := h.views.Current()
	if v == nil || !v.Running() {
		return nil, unavailable(c, "dashboard view is not running")
	}

	return v, nil
}

func (h *APIHandlers) GetState(c fiber.Ctx) error {
	v, err := h.view(c)
	if v == nil {
		return err
	}

	return c.JSON(v.State())
}

// GetCases returns the visible list. The optional q parameter searches this
// response only; the view's search text is left as it is.
func (h *APIHandlers) GetCases(c fiber.Ctx) error {
	v, err := h.view(c)
	if v == nil {
		return err
	}

	visible := v.Visible()
	if c.Request().URI().QueryArgs().Has("q") {
		visible = v.VisibleFor(strings.TrimSpace(c.Query("q")))
	}

	return c.JSON(TransformVisible(visible, v.Urgency(visible.Cases)))
}

func (h *APIHandlers) SetQuery(c fiber.Ctx) error {
	v, err := h.view(c)
	if v == nil {
		return err
	}

	var req SetQueryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	v.SetQuery(strings.TrimSpace(req.Query))

	visible := v.Visible()

	return c.JSON(TransformVisible(visible, v.Urgency(visible.Cases)))
}

func (h *APIHandlers) ToggleFilter(c fiber.Ctx) error {
	v, err := h.view(c)
	if v == nil {
		return err
	}

	var req ToggleFilterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	filters, err := v.ToggleFilter(filter.Category(req.Category), req.Value)
	if err != nil {
		return handleViewError(c, err)
	}

	return c.JSON(FiltersResponse{Filters: filters, Active: filters.Active()})
}

func (h *APIHandlers) ClearFilters(c fiber.Ctx) error {
	v, err := h.view(c)
	if v == nil {
		return err
	}

	v.ClearFilters()

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	v, err := h.view(c)
	if v == nil {
		return err
	}

	return c.JSON(v.Session())
}

func (h *APIHandlers) OpenSession(c fiber.Ctx) error {
	v, err := h.view(c)
	if v == nil {
		return err
	}

	var req OpenSessionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := v.OpenSession(c.Context(), req.Candidate, req.Stage)
	if err != nil {
		return handleViewError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *APIHandlers) CloseSession(c fiber.Ctx) error {
	v, err := h.view(c)
	if v == nil {
		return err
	}

	v.CloseSession()

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) Reconcile(c fiber.Ctx) error {
	v, err := h.view(c)
	if v == nil {
		return err
	}

	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Entity key is required")
	}

	result, err := v.Reconcile(c.Context(), key)
	if err != nil {
		return handleViewError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) MarkNotificationRead(c fiber.Ctx) error {
	v, err := h.view(c)
	if v == nil {
		return err
	}

	if !v.MarkNotificationRead(c.Params("id")) {
		return notFound(c, "Notification not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
