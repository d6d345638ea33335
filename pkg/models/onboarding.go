// Package models defines the domain models for onboarding case monitoring.
package models

import (
	"math"
	"time"
)

// Stage is the onboarding journey stage a case is in.
type Stage string

const (
	StagePreboarding Stage = "Preboarding"
	StageDay1        Stage = "Day 1"
	StageWeek1       Stage = "Week 1"
	StageDay30       Stage = "Day 30"
	StageDay90       Stage = "Day 90"

	// StageBGCPending is a histogram bucket used by the background-check workflow.
	StageBGCPending Stage = "BGC Pending"
)

// Stages lists the journey stages in display order.
var Stages = []Stage{StagePreboarding, StageDay1, StageWeek1, StageDay30, StageDay90}

// CaseStatus is the health of an onboarding case.
type CaseStatus string

const (
	StatusPending       CaseStatus = "Pending"
	StatusInProgress    CaseStatus = "InProgress"
	StatusBlocked       CaseStatus = "Blocked"
	StatusAtRisk        CaseStatus = "At Risk"
	StatusCompleted     CaseStatus = "Completed"
	StatusToBeInitiated CaseStatus = "Onboarding to be initiated"
)

// Statuses lists every case status.
var Statuses = []CaseStatus{
	StatusPending,
	StatusInProgress,
	StatusBlocked,
	StatusAtRisk,
	StatusCompleted,
	StatusToBeInitiated,
}

// Department owning the new hire.
type Department string

const (
	DepartmentEngineering     Department = "Engineering"
	DepartmentSales           Department = "Sales"
	DepartmentMarketing       Department = "Marketing"
	DepartmentFinance         Department = "Finance"
	DepartmentHR              Department = "HR"
	DepartmentOperations      Department = "Operations"
	DepartmentProduct         Department = "Product"
	DepartmentCustomerSuccess Department = "Customer Success"
)

// Departments lists every department.
var Departments = []Department{
	DepartmentEngineering,
	DepartmentSales,
	DepartmentMarketing,
	DepartmentFinance,
	DepartmentHR,
	DepartmentOperations,
	DepartmentProduct,
	DepartmentCustomerSuccess,
}

// OnboardingCase is one new hire's onboarding journey.
type OnboardingCase struct {
	ID              string     `json:"id"               validate:"required"`
	EmployeeID      string     `json:"employee_id"      validate:"required"`
	EmployeeName    string     `json:"employee_name"    validate:"required"`
	Department      Department `json:"department"`
	Role            string     `json:"role"`
	Stage           Stage      `json:"stage"            validate:"required"`
	Status          CaseStatus `json:"status"           validate:"required"`
	ProgressPercent int        `json:"progress_percent" validate:"gte=0,lte=100"`
	DueNext         string     `json:"due_next"`
	DueDate         time.Time  `json:"due_date"`
	ExceptionCount  int        `json:"exception_count"  validate:"gte=0"`
	Manager         string     `json:"manager"`
	CreatedDate     time.Time  `json:"created_date"`
}

// Urgency classifies how close a case's due date is.
type Urgency string

const (
	UrgencyDone     Urgency = "done"
	UrgencyOverdue  Urgency = "overdue"
	UrgencyDueToday Urgency = "due_today"
	UrgencyDueSoon  Urgency = "due_soon"
	UrgencyLater    Urgency = "later"
)

// DueUrgency classifies the case's due date relative to now. Completed cases
// are always UrgencyDone.
func (c OnboardingCase) DueUrgency(now time.Time) Urgency {
	if c.Status == StatusCompleted {
		return UrgencyDone
	}

	days := int(math.Ceil(c.DueDate.Sub(now).Hours() / 24))

	switch {
	case days < 0:
		return UrgencyOverdue
	case days == 0:
		return UrgencyDueToday
	case days <= 2:
		return UrgencyDueSoon
	default:
		return UrgencyLater
	}
}
