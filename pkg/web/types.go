// Package web provides HTTP request and response types for the dashboard API.
package web

import (
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/dashboard"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

// SetQueryRequest replaces the search text.
type SetQueryRequest struct {
	Query string `json:"query" validate:"max=200"`
}

// ToggleFilterRequest adds or removes one filter value.
type ToggleFilterRequest struct {
	Category string `json:"category" validate:"required,oneof=stage status department"`
	Value    string `json:"value"    validate:"required"`
}

// OpenSessionRequest opens the assistant session for a candidate.
type OpenSessionRequest struct {
	Candidate string `json:"candidate" validate:"required,min=1"`
	Stage     string `json:"stage"`
}

// FiltersResponse is the filter state after a change.
type FiltersResponse struct {
	Filters models.DashboardFilters `json:"filters"`
	Active  int                     `json:"active"`
}

// CaseResponse is one rendered row.
type CaseResponse struct {
	models.OnboardingCase

	Urgency models.Urgency `json:"urgency"`
}

// CasesResponse is the rendered case list with its "N of M" counts.
type CasesResponse struct {
	Cases []CaseResponse `json:"cases"`
	Shown int            `json:"shown"`
	Total int            `json:"total"`
}

// TransformVisible pairs every visible case with its due-date urgency.
func TransformVisible(visible dashboard.Visible, urgency map[string]models.Urgency) CasesResponse {
	cases := make([]CaseResponse, 0, len(visible.Cases))
	for _, c := range visible.Cases {
		cases = append(cases, CaseResponse{OnboardingCase: c, Urgency: urgency[c.ID]})
	}

	return CasesResponse{Cases: cases, Shown: visible.Shown, Total: visible.Total}
}
