package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/channels/gochannel"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/channels/kafka"
)

// NewEventBus creates the watermill publisher and subscriber for provider.
func NewEventBus(provider string, brokers []string, serviceName string, logger *slog.Logger) (message.Publisher, message.Subscriber, error) {
	wlogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "gochannel", "":
		return gochannel.CreateChannel(wlogger)
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wlogger, brokers, serviceName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return pub, sub, nil
	default:
		return nil, nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
