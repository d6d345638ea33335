package models

import "time"

// Severity grades telemetry events and notifications.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// TelemetryEvent is an immutable record of something the onboarding agents did.
type TelemetryEvent struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"                 validate:"required"`
	Message     string            `json:"message"              validate:"required"`
	Timestamp   time.Time         `json:"timestamp"`
	SubjectName string            `json:"subject_name,omitempty"`
	Severity    Severity          `json:"severity"             validate:"omitempty,oneof=info success warning critical"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Notification is a user-facing message derived from telemetry or raised directly.
type Notification struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubjectName string    `json:"subject_name,omitempty"`
	Severity    Severity  `json:"severity"`
	Read        bool      `json:"read"`
}

// AgentActivity is one entry of the recent agent activity feed.
type AgentActivity struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	Agent     string    `json:"agent"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
}
