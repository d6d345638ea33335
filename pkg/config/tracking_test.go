package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/workflow"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, Validate(cfg))
	assert.Len(t, cfg.Entities, 2)
}

func TestParseTracking(t *testing.T) {
	doc := `
debounce: 250ms
entities:
  - key: alexMorgan
    employee_name: Alex Morgan
    case_id: alex-morgan-001
    workflow: candidate-chat
  - key: jordanLee
    employee_name: Jordan Lee
    workflow: background-check
    poll_interval: 3s
  - key: samPatel
    employee_name: Sam Patel
    workflow: background-check
`

	cfg, err := ParseTracking([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 20, cfg.RenderLimit)
	require.Len(t, cfg.Entities, 3)
	assert.Equal(t, workflow.CandidateChat, cfg.Entities[0].Workflow)
	assert.Equal(t, 3*time.Second, cfg.Entities[1].Interval())
	assert.Equal(t, time.Second, cfg.Entities[2].Interval())
}

func TestParseTracking_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no entities", "debounce: 1s\n"},
		{"missing name", "entities:\n  - key: a\n    workflow: candidate-chat\n"},
		{"bad key", "entities:\n  - key: a-b\n    employee_name: A\n    workflow: candidate-chat\n"},
		{"unknown workflow", "entities:\n  - key: a\n    employee_name: A\n    workflow: payroll\n"},
		{
			"duplicate key",
			"entities:\n  - key: a\n    employee_name: A\n    workflow: candidate-chat\n" +
				"  - key: a\n    employee_name: B\n    workflow: background-check\n",
		},
		{"not yaml", "entities: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTracking([]byte(tt.doc))
			require.Error(t, err)
		})
	}
}

func TestLoadTrackingOrDefault(t *testing.T) {
	cfg, err := LoadTrackingOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadTrackingOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "tracking.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entities:\n  - key: jordanLee\n    employee_name: Jordan Lee\n    workflow: background-check\n"), 0o600))

	cfg, err = LoadTrackingOrDefault(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Entities, 1)
}
