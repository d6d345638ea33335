// Package protocol defines the contracts shared by reconciliation triggers.
package protocol

import (
	"context"
)

// Trigger sources.
const (
	SourceSignal  = "signal"
	SourceStorage = "storage"
	SourcePoll    = "poll"
	SourceManual  = "manual"
)

// TriggerCallback asks for entity to be reconciled. source names the trigger
// that fired.
type TriggerCallback func(ctx context.Context, entity, source string) error

// Trigger fires reconciliations until stopped. Stop waits for callbacks that
// are already running.
type Trigger interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
	Validate() error
}
