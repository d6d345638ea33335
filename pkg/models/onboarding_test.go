package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOnboardingCase_DueUrgency(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		c        OnboardingCase
		expected Urgency
	}{
		{
			name:     "completed case",
			c:        OnboardingCase{Status: StatusCompleted, DueDate: now.AddDate(0, 0, -10)},
			expected: UrgencyDone,
		},
		{
			name:     "overdue",
			c:        OnboardingCase{Status: StatusInProgress, DueDate: now.AddDate(0, 0, -2)},
			expected: UrgencyOverdue,
		},
		{
			name:     "earlier today",
			c:        OnboardingCase{Status: StatusInProgress, DueDate: now.Add(-3 * time.Hour)},
			expected: UrgencyDueToday,
		},
		{
			name:     "due tomorrow",
			c:        OnboardingCase{Status: StatusPending, DueDate: now.Add(20 * time.Hour)},
			expected: UrgencyDueSoon,
		},
		{
			name:     "next week",
			c:        OnboardingCase{Status: StatusPending, DueDate: now.AddDate(0, 0, 7)},
			expected: UrgencyLater,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.c.DueUrgency(now))
		})
	}
}

func TestDashboardFilters_Toggle(t *testing.T) {
	var f DashboardFilters

	f = f.ToggleStage(StageWeek1).ToggleStage(StageDay1)
	assert.Equal(t, []Stage{StageWeek1, StageDay1}, f.Stage)

	f = f.ToggleStage(StageWeek1)
	assert.Equal(t, []Stage{StageDay1}, f.Stage)

	f = f.ToggleStatus(StatusBlocked).ToggleDepartment(DepartmentSales)
	assert.Equal(t, 3, f.Active())

	// toggling twice is a no-op per category
	g := f.ToggleDepartment(DepartmentHR).ToggleDepartment(DepartmentHR)
	assert.Equal(t, f, g)
}

func TestDashboardFilters_Matches(t *testing.T) {
	c := OnboardingCase{Stage: StageWeek1, Status: StatusBlocked, Department: DepartmentSales}

	assert.True(t, DashboardFilters{}.Matches(c))
	assert.True(t, DashboardFilters{Stage: []Stage{StageDay1, StageWeek1}}.Matches(c))
	assert.False(t, DashboardFilters{Stage: []Stage{StageDay1}}.Matches(c))
	assert.False(t, DashboardFilters{
		Stage:      []Stage{StageWeek1},
		Department: []Department{DepartmentHR},
	}.Matches(c))
}
