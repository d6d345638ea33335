package workflow

// Keys are the shared store keys of one tracked entity.
type Keys struct {
	Stage      string
	Progress   string
	Ready      string
	Completion string
	Marker     string
}

// KeysFor returns the keys for entity under definition d.
func KeysFor(entity string, d Definition) Keys {
	return Keys{
		Stage:      entity + "Stage",
		Progress:   entity + "Progress",
		Ready:      entity + "Ready",
		Completion: entity + d.CompletionSuffix,
		Marker:     entity + "MetricsUpdated",
	}
}

// Watched returns the keys whose change should trigger a reconciliation.
func (k Keys) Watched() []string {
	return []string{k.Stage, k.Progress, k.Ready, k.Completion}
}

// UpdateSignal is the name of the update signal for entity.
func UpdateSignal(entity string) string {
	return entity + "Update"
}
