package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

// MockPublisher is a mock implementation of workflow.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(event models.TelemetryEvent) {
	m.Called(event)
}

// MockSessionOpener is a mock implementation of workflow.SessionOpener.
type MockSessionOpener struct {
	mock.Mock
}

func (m *MockSessionOpener) AutoOpen(candidate string) bool {
	args := m.Called(candidate)

	return args.Bool(0)
}

// MockObserver is a mock implementation of workflow.Observer.
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) ObserveReconcile(workflow, outcome string, elapsed time.Duration) {
	m.Called(workflow, outcome, elapsed)
}

func (m *MockObserver) ObserveEffect(workflow string) {
	m.Called(workflow)
}
