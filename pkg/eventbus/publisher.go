package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

// Publisher is the simulator's side of the bus.
type Publisher struct {
	publisher message.Publisher
	origin    string
	now       func() time.Time
}

func NewPublisher(pub message.Publisher, origin string) *Publisher {
	return &Publisher{publisher: pub, origin: origin, now: time.Now}
}

func (p *Publisher) GenerateID() string {
	return watermill.NewULID()
}

// PublishSignal emits the named update signal for entity.
func (p *Publisher) PublishSignal(ctx context.Context, entity, name string) error {
	return p.publish(ctx, SignalTopic, entity, Signal{Entity: entity, Name: name, At: p.now().UTC()})
}

// PublishTelemetry emits a telemetry event.
func (p *Publisher) PublishTelemetry(ctx context.Context, event models.TelemetryEvent) error {
	if event.ID == "" {
		event.ID = p.GenerateID()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}

	return p.publish(ctx, TelemetryTopic, event.SubjectName, TelemetryMessage{Event: event, Origin: p.origin})
}

func (p *Publisher) publish(ctx context.Context, topic, entity string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", topic, err)
	}

	msg := message.NewMessage("msg-"+p.GenerateID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set(EntityMetadataKey, entity)
	msg.Metadata.Set(OriginMetadataKey, p.origin)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	return p.publisher.Close()
}
