// Package eventbus carries update signals and agent telemetry between the
// workflow simulator and the dashboard over watermill.
package eventbus

import (
	"time"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

const (
	SignalTopic    = "onboarding.workflow.signals"
	TelemetryTopic = "onboarding.telemetry"

	EntityMetadataKey = "entity"
	OriginMetadataKey = "origin"
)

// Signal asks the dashboard to re-read an entity's store keys.
type Signal struct {
	Entity string    `json:"entity"`
	Name   string    `json:"name"`
	At     time.Time `json:"at"`
}

// TelemetryMessage is the wire form of a telemetry event.
type TelemetryMessage struct {
	Event  models.TelemetryEvent `json:"event"`
	Origin string                `json:"origin,omitempty"`
}

// telemetrySchema guards the relay against malformed telemetry payloads.
var telemetrySchema = map[string]any{
	"type":     "object",
	"required": []any{"event"},
	"properties": map[string]any{
		"origin": map[string]any{"type": "string"},
		"event": map[string]any{
			"type":     "object",
			"required": []any{"kind", "message"},
			"properties": map[string]any{
				"id":           map[string]any{"type": "string"},
				"kind":         map[string]any{"type": "string", "minLength": 1},
				"message":      map[string]any{"type": "string", "minLength": 1},
				"timestamp":    map[string]any{"type": "string"},
				"subject_name": map[string]any{"type": "string"},
				"severity": map[string]any{
					"type": "string",
					"enum": []any{"", "info", "success", "warning", "critical"},
				},
				"attributes": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"type": "string"},
				},
			},
		},
	},
}
