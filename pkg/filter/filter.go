// Package filter derives the visible journey list from the base cases, live
// case overrides, the search text and the category filters.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

// DefaultLimit is the number of rows the journey table renders.
const DefaultLimit = 20

// Category names one filter dimension.
type Category string

const (
	CategoryStage      Category = "stage"
	CategoryStatus     Category = "status"
	CategoryDepartment Category = "department"
)

var (
	ErrUnknownCategory = errors.New("unknown filter category")
	ErrUnknownValue    = errors.New("unknown filter value")
)

// Toggle flips value in category. Values outside the category's enumeration
// are rejected.
func Toggle(f models.DashboardFilters, category Category, value string) (models.DashboardFilters, error) {
	switch category {
	case CategoryStage:
		stage := models.Stage(value)
		if !slices.Contains(models.Stages, stage) {
			return f, fmt.Errorf("%w: %s %q", ErrUnknownValue, category, value)
		}

		return f.ToggleStage(stage), nil
	case CategoryStatus:
		status := models.CaseStatus(value)
		if !slices.Contains(models.Statuses, status) {
			return f, fmt.Errorf("%w: %s %q", ErrUnknownValue, category, value)
		}

		return f.ToggleStatus(status), nil
	case CategoryDepartment:
		department := models.Department(value)
		if !slices.Contains(models.Departments, department) {
			return f, fmt.Errorf("%w: %s %q", ErrUnknownValue, category, value)
		}

		return f.ToggleDepartment(department), nil
	default:
		return f, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
}

// Clear returns an empty selection.
func Clear() models.DashboardFilters {
	return models.DashboardFilters{}
}

// DeriveVisible applies overrides, then the search query, then the category
// filters. The result keeps the order of cases and never aliases it.
func DeriveVisible(
	cases []models.OnboardingCase,
	query string,
	filters models.DashboardFilters,
	overrides []models.CaseOverride,
) []models.OnboardingCase {
	query = strings.ToLower(strings.TrimSpace(query))
	visible := make([]models.OnboardingCase, 0, len(cases))

	for _, c := range cases {
		c = applyOverrides(c, overrides)

		if !matchesQuery(c, query) || !filters.Matches(c) {
			continue
		}

		visible = append(visible, c)
	}

	return visible
}

// Limit returns at most n cases.
func Limit(cases []models.OnboardingCase, n int) []models.OnboardingCase {
	if n < 0 || len(cases) <= n {
		return cases
	}

	return cases[:n]
}

func applyOverrides(c models.OnboardingCase, overrides []models.CaseOverride) models.OnboardingCase {
	for _, o := range overrides {
		if o.Matches(c) {
			return o.ApplyTo(c)
		}
	}

	return c
}

func matchesQuery(c models.OnboardingCase, query string) bool {
	if query == "" {
		return true
	}

	return strings.Contains(strings.ToLower(c.EmployeeName), query) ||
		strings.Contains(strings.ToLower(c.EmployeeID), query) ||
		strings.Contains(strings.ToLower(c.ID), query)
}
