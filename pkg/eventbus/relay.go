package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/xeipuuv/gojsonschema"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

// SignalSink receives update signals. Implemented by signal.Dispatcher.
type SignalSink interface {
	Emit(name string) int
}

// TelemetrySink receives telemetry. Implemented by telemetry.Bus.
type TelemetrySink interface {
	Publish(event models.TelemetryEvent)
}

// Relay feeds remote signals into the dispatcher and remote telemetry into
// the notification bus.
type Relay struct {
	subscriber message.Subscriber
	signals    SignalSink
	telemetry  TelemetrySink
	schema     *gojsonschema.Schema
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewRelay(sub message.Subscriber, signals SignalSink, telemetry TelemetrySink, logger *slog.Logger) (*Relay, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(telemetrySchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile telemetry schema: %w", err)
	}

	return &Relay{
		subscriber: sub,
		signals:    signals,
		telemetry:  telemetry,
		schema:     schema,
		logger:     logger.With("module", "eventbus_relay"),
	}, nil
}

// Subscribe starts consuming both topics until ctx is done.
func (r *Relay) Subscribe(ctx context.Context) error {
	signals, err := r.subscriber.Subscribe(ctx, SignalTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SignalTopic, err)
	}

	telemetry, err := r.subscriber.Subscribe(ctx, TelemetryTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", TelemetryTopic, err)
	}

	r.wg.Add(2)

	go r.consume(signals, r.handleSignal)
	go r.consume(telemetry, r.handleTelemetry)

	r.logger.Info("Relay subscribed", "topics", []string{SignalTopic, TelemetryTopic})

	return nil
}

func (r *Relay) consume(messages <-chan *message.Message, handle func(*message.Message) error) {
	defer r.wg.Done()

	for msg := range messages {
		if err := handle(msg); err != nil {
			// Malformed payloads are dropped.
			r.logger.Warn("Dropping message", "id", msg.UUID, "error", err)
		}

		msg.Ack()
	}
}

func (r *Relay) handleSignal(msg *message.Message) error {
	var s Signal
	if err := json.Unmarshal(msg.Payload, &s); err != nil {
		return fmt.Errorf("invalid signal payload: %w", err)
	}

	if s.Name == "" {
		return errors.New("signal without name")
	}

	delivered := r.signals.Emit(s.Name)
	r.logger.Debug("Relayed update signal", "signal", s.Name, "listeners", delivered)

	return nil
}

func (r *Relay) handleTelemetry(msg *message.Message) error {
	if err := r.validate(msg.Payload); err != nil {
		return err
	}

	var m TelemetryMessage
	if err := json.Unmarshal(msg.Payload, &m); err != nil {
		return fmt.Errorf("invalid telemetry payload: %w", err)
	}

	r.telemetry.Publish(m.Event)

	return nil
}

func (r *Relay) validate(payload []byte) error {
	result, err := r.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("invalid telemetry payload: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}

		return fmt.Errorf("JSON schema validation failed: %s", strings.Join(problems, "; "))
	}

	return nil
}

// Close closes the subscriber and waits for the consumers to drain.
func (r *Relay) Close() error {
	err := r.subscriber.Close()
	r.wg.Wait()

	return err
}
