package models

import "time"

// CaseOverride carries live values for one tracked case. It matches a case by
// ID when CaseID is set and by employee name otherwise. Empty optional fields
// keep the base value.
type CaseOverride struct {
	CaseID          string     `json:"case_id,omitempty"`
	EmployeeName    string     `json:"employee_name"`
	Stage           Stage      `json:"stage"`
	Status          CaseStatus `json:"status"`
	ProgressPercent int        `json:"progress_percent"`
	DueNext         string     `json:"due_next"`
	ExceptionCount  int        `json:"exception_count"`
	Role            string     `json:"role,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
}

// Matches reports whether the override targets c.
func (o CaseOverride) Matches(c OnboardingCase) bool {
	if o.CaseID != "" {
		return c.ID == o.CaseID
	}

	return o.EmployeeName != "" && c.EmployeeName == o.EmployeeName
}

// ApplyTo returns c with the override's values.
func (o CaseOverride) ApplyTo(c OnboardingCase) OnboardingCase {
	c.Stage = o.Stage
	c.Status = o.Status
	c.ProgressPercent = o.ProgressPercent
	c.DueNext = o.DueNext
	c.ExceptionCount = o.ExceptionCount

	if o.Role != "" {
		c.Role = o.Role
	}

	if o.DueDate != nil {
		c.DueDate = *o.DueDate
	}

	return c
}

// Equal reports whether o and other carry the same values.
func (o CaseOverride) Equal(other CaseOverride) bool {
	if (o.DueDate == nil) != (other.DueDate == nil) {
		return false
	}

	if o.DueDate != nil && !o.DueDate.Equal(*other.DueDate) {
		return false
	}

	o.DueDate, other.DueDate = nil, nil

	return o == other
}
