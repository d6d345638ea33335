package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/dashboard"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/filter"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/workflow"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func unavailable(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(503).
		WithInstance(c.Path()).
		WithType("view_unavailable").
		WithDetail(detail)

	return c.Status(fiber.StatusServiceUnavailable).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleViewError maps dashboard and reconciler errors to problems.
func handleViewError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, workflow.ErrUnknownEntity):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("entity_not_found").
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, filter.ErrUnknownCategory), errors.Is(err, filter.ErrUnknownValue):
		return badRequest(c, err.Error())

	case errors.Is(err, dashboard.ErrNotStarted), errors.Is(err, dashboard.ErrStopped):
		return unavailable(c, err.Error())

	default:
		return internalError(c, err)
	}
}
