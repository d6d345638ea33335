// Package workflow reconciles the dashboard's view of tracked onboarding
// cases with the workflow state an external simulator writes to the shared
// store.
package workflow

import (
	"time"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/telemetry"
)

// ID names a workflow definition.
type ID string

const (
	CandidateChat   ID = "candidate-chat"
	BackgroundCheck ID = "background-check"
)

// Label is a stage label written by the simulator to the {entity}Stage key.
type Label string

const (
	LabelNone              Label = ""
	LabelFileUploadPending Label = "File Upload Pending"
	LabelPullingBGCReports Label = "Pulling BGC Reports"
)

// Transition is the case state a label maps to.
type Transition struct {
	Stage   models.Stage      `json:"stage"`
	Status  models.CaseStatus `json:"status"`
	DueNext string            `json:"due_next"`
}

// StageMove moves one unit of the stage histogram between two buckets.
type StageMove struct {
	From models.Stage `json:"from"`
	To   models.Stage `json:"to"`
}

// Effect is the aggregate side effect of completing a workflow. It is applied
// at most once per completion.
type Effect struct {
	Metrics    models.MetricsDelta `json:"metrics"`
	Increments []models.Stage      `json:"increments,omitempty"`
	Moves      []StageMove         `json:"moves,omitempty"`
	Kind       string              `json:"kind"`
	Message    string              `json:"message"`
}

// Definition is the closed transition table of one workflow.
type Definition struct {
	ID ID

	InitialProgress    int
	CompletionProgress int

	// CompletionSuffix names the completion key, {entity}{CompletionSuffix}.
	CompletionSuffix string

	// Pending applies when no known label is stored and the workflow is not
	// complete; Completed, when set, applies on completion.
	Pending   Transition
	Completed *Transition
	Labels    map[Label]Transition

	// SessionLabel opens an assistant session when reached.
	SessionLabel Label

	// AdoptStoredProgress takes {entity}Progress as the live progress while a
	// stage label is stored.
	AdoptStoredProgress bool

	Effect       Effect
	PollInterval time.Duration

	// Role and DueToday decorate the case shown for the entity.
	Role     string
	DueToday bool
}

// ParseLabel maps a stored value to one of the definition's labels. Values
// outside the table are LabelNone.
func (d Definition) ParseLabel(raw string) Label {
	label := Label(raw)
	if _, ok := d.Labels[label]; ok {
		return label
	}

	return LabelNone
}

// Resolve picks the transition for a label and completion state. A known
// label wins, then completion, then the pending transition.
func (d Definition) Resolve(label Label, completed bool) Transition {
	if t, ok := d.Labels[label]; ok && label != LabelNone {
		return t
	}

	if completed && d.Completed != nil {
		return *d.Completed
	}

	return d.Pending
}

var definitions = map[ID]Definition{
	CandidateChat: {
		ID:                  CandidateChat,
		InitialProgress:     0,
		CompletionProgress:  5,
		CompletionSuffix:    "ChatCompleted",
		Pending:             Transition{Stage: models.StagePreboarding, Status: models.StatusPending, DueNext: "Today"},
		AdoptStoredProgress: true,
		Labels: map[Label]Transition{
			LabelFileUploadPending: {
				Stage:   models.StagePreboarding,
				Status:  models.StatusPending,
				DueNext: "File Upload Pending",
			},
			LabelPullingBGCReports: {
				Stage:   models.StageWeek1,
				Status:  models.StatusInProgress,
				DueNext: "BGC Review Pending",
			},
		},
		SessionLabel: LabelPullingBGCReports,
		Effect: Effect{
			Metrics:    models.MetricsDelta{ActiveJourneys: 1},
			Increments: []models.Stage{models.StagePreboarding},
			Kind:       telemetry.KindJourneyStarted,
			Message:    "Onboarding journey started after candidate chat",
		},
		PollInterval: 2 * time.Second,
		Role:         "Senior Software Engineer",
		DueToday:     true,
	},
	BackgroundCheck: {
		ID:                 BackgroundCheck,
		InitialProgress:    5,
		CompletionProgress: 15,
		CompletionSuffix:   "BGCCompleted",
		Pending: Transition{
			Stage:   models.StageBGCPending,
			Status:  models.StatusPending,
			DueNext: "Upload BGC documents (today)",
		},
		Completed: &Transition{
			Stage:   models.StageWeek1,
			Status:  models.StatusInProgress,
			DueNext: "Equipment Setup (Today)",
		},
		Effect: Effect{
			Metrics: models.MetricsDelta{ActiveJourneys: 1, BGVPending: -1},
			Moves:   []StageMove{{From: models.StageBGCPending, To: models.StageWeek1}},
			Kind:    telemetry.KindBGCCompleted,
			Message: "Background check cleared, journey moved to Week 1",
		},
		PollInterval: time.Second,
	},
}

// Lookup returns the definition for id.
func Lookup(id ID) (Definition, bool) {
	d, ok := definitions[id]

	return d, ok
}

// IDs lists the known workflows.
func IDs() []ID {
	return []ID{CandidateChat, BackgroundCheck}
}
