package telemetry

// Telemetry event kinds emitted by the onboarding agents and the reconciler.
const (
	KindWorkflowTransition = "workflow.transition"
	KindJourneyStarted     = "journey.started"
	KindBGCCompleted       = "bgc.completed"
	KindDocumentsRequested = "documents.requested"
	KindSessionOpened      = "session.opened"
	KindAgentAction        = "agent.action"
	KindException          = "case.exception"
)

var notifyingKinds = map[string]bool{
	KindJourneyStarted: true,
	KindBGCCompleted:   true,
	KindException:      true,
}

var kindTitles = map[string]string{
	KindWorkflowTransition: "Workflow updated",
	KindJourneyStarted:     "Onboarding journey started",
	KindBGCCompleted:       "Background check completed",
	KindDocumentsRequested: "Documents requested",
	KindSessionOpened:      "Assistant session opened",
	KindException:          "Case exception raised",
}
