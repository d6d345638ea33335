package workflow

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownEntity   = errors.New("unknown tracked entity")
	ErrUnknownWorkflow = errors.New("unknown workflow")
)

// Entity is one case tracked under workflow control.
type Entity struct {
	// Key prefixes the entity's store keys, e.g. "jordanLee".
	Key          string        `yaml:"key"           validate:"required,alphanum"`
	EmployeeName string        `yaml:"employee_name" validate:"required"`
	CaseID       string        `yaml:"case_id"`
	Workflow     ID            `yaml:"workflow"      validate:"required"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gte=0"`
}

// DefaultEntities returns the two tracked candidates of the onboarding demo.
func DefaultEntities() []Entity {
	return []Entity{
		{Key: "alexMorgan", EmployeeName: "Alex Morgan", CaseID: "alex-morgan-001", Workflow: CandidateChat},
		{Key: "jordanLee", EmployeeName: "Jordan Lee", Workflow: BackgroundCheck},
	}
}

// Definition returns the entity's workflow definition.
func (e Entity) Definition() (Definition, error) {
	d, ok := Lookup(e.Workflow)
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownWorkflow, e.Workflow)
	}

	return d, nil
}

// Interval returns the poll interval, falling back to the workflow's.
func (e Entity) Interval() time.Duration {
	if e.PollInterval > 0 {
		return e.PollInterval
	}

	d, err := e.Definition()
	if err != nil || d.PollInterval <= 0 {
		return 2 * time.Second
	}

	return d.PollInterval
}
