package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

func TestDefinition_Resolve(t *testing.T) {
	chat, ok := Lookup(CandidateChat)
	require.True(t, ok)

	bgc, ok := Lookup(BackgroundCheck)
	require.True(t, ok)

	tests := []struct {
		name      string
		def       Definition
		label     Label
		completed bool
		want      Transition
	}{
		{"chat pending", chat, LabelNone, false, chat.Pending},
		{"chat completed has no completed transition", chat, LabelNone, true, chat.Pending},
		{"chat label wins over completion", chat, LabelPullingBGCReports, true, chat.Labels[LabelPullingBGCReports]},
		{"bgc pending", bgc, LabelNone, false, bgc.Pending},
		{"bgc completed", bgc, LabelNone, true, *bgc.Completed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.def.Resolve(tt.label, tt.completed))
		})
	}
}

func TestDefinition_ParseLabel(t *testing.T) {
	chat, _ := Lookup(CandidateChat)
	bgc, _ := Lookup(BackgroundCheck)

	assert.Equal(t, LabelFileUploadPending, chat.ParseLabel("File Upload Pending"))
	assert.Equal(t, LabelNone, chat.ParseLabel("file upload pending"))
	assert.Equal(t, LabelNone, chat.ParseLabel(""))
	assert.Equal(t, LabelNone, bgc.ParseLabel("Pulling BGC Reports"))
}

func TestKeysFor(t *testing.T) {
	bgc, _ := Lookup(BackgroundCheck)

	keys := KeysFor("jordanLee", bgc)

	assert.Equal(t, Keys{
		Stage:      "jordanLeeStage",
		Progress:   "jordanLeeProgress",
		Ready:      "jordanLeeReady",
		Completion: "jordanLeeBGCCompleted",
		Marker:     "jordanLeeMetricsUpdated",
	}, keys)
	assert.NotContains(t, keys.Watched(), keys.Marker)
	assert.Equal(t, "jordanLeeUpdate", UpdateSignal("jordanLee"))
}

func TestEntity_Interval(t *testing.T) {
	entities := DefaultEntities()

	assert.Equal(t, 2*time.Second, entities[0].Interval())
	assert.Equal(t, time.Second, entities[1].Interval())

	custom := Entity{Key: "x", Workflow: BackgroundCheck, PollInterval: 5 * time.Second}
	assert.Equal(t, 5*time.Second, custom.Interval())
}

func TestDefinitions_EffectsConserveStages(t *testing.T) {
	for _, id := range IDs() {
		def, ok := Lookup(id)
		require.True(t, ok, id)

		for _, move := range def.Effect.Moves {
			assert.NotEqual(t, move.From, move.To)
		}

		assert.Greater(t, def.CompletionProgress, def.InitialProgress)
		assert.Contains(t, []models.Stage{models.StagePreboarding, models.StageBGCPending}, def.Pending.Stage)
	}
}
