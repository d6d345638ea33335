package kafka

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/require"
)

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	_, _, err := CreateChannel(watermill.NopLogger{}, nil, "onboarding-dashboard")
	require.Error(t, err)

	_, _, err = CreateChannel(watermill.NopLogger{}, []string{""}, "onboarding-dashboard")
	require.Error(t, err)
}
