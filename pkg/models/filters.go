package models

import "slices"

// DashboardFilters is the active filter selection of the journey list. An
// empty category matches every case.
type DashboardFilters struct {
	Stage      []Stage      `json:"stage,omitempty"`
	Status     []CaseStatus `json:"status,omitempty"`
	Department []Department `json:"department,omitempty"`
}

// ToggleStage removes stage when selected and adds it otherwise.
func (f DashboardFilters) ToggleStage(stage Stage) DashboardFilters {
	f.Stage = toggle(f.Stage, stage)

	return f
}

// ToggleStatus removes status when selected and adds it otherwise.
func (f DashboardFilters) ToggleStatus(status CaseStatus) DashboardFilters {
	f.Status = toggle(f.Status, status)

	return f
}

// ToggleDepartment removes department when selected and adds it otherwise.
func (f DashboardFilters) ToggleDepartment(department Department) DashboardFilters {
	f.Department = toggle(f.Department, department)

	return f
}

// Active returns the number of selected values across all categories.
func (f DashboardFilters) Active() int {
	return len(f.Stage) + len(f.Status) + len(f.Department)
}

// Matches reports whether c passes every category.
func (f DashboardFilters) Matches(c OnboardingCase) bool {
	return allows(f.Stage, c.Stage) &&
		allows(f.Status, c.Status) &&
		allows(f.Department, c.Department)
}

func allows[T comparable](selected []T, v T) bool {
	return len(selected) == 0 || slices.Contains(selected, v)
}

func toggle[T comparable](selected []T, v T) []T {
	if i := slices.Index(selected, v); i >= 0 {
		out := make([]T, 0, len(selected)-1)
		out = append(out, selected[:i]...)

		return append(out, selected[i+1:]...)
	}

	out := make([]T, 0, len(selected)+1)
	out = append(out, selected...)

	return append(out, v)
}
