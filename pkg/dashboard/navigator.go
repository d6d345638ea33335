package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Factory builds the next view generation.
type Factory func() (*View, error)

// Navigator owns the current view. Show stops the current view, waiting
// for its triggers, before the next one starts, so two generations never
// reconcile at the same time.
type Navigator struct {
	mu      sync.Mutex
	current *View
	logger  *slog.Logger
}

func NewNavigator(logger *slog.Logger) *Navigator {
	return &Navigator{logger: logger.With("module", "dashboard_navigator")}
}

// Show replaces the current view with one built by factory.
func (n *Navigator) Show(ctx context.Context, factory Factory) (*View, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current != nil {
		if err := n.current.Stop(ctx); err != nil {
			return nil, fmt.Errorf("failed to stop current view: %w", err)
		}

		n.current = nil
	}

	next, err := factory()
	if err != nil {
		return nil, err
	}

	if err := next.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start view: %w", err)
	}

	n.current = next
	n.logger.Info("Showing new dashboard view")

	return next, nil
}

// Current returns the running view, or nil.
func (n *Navigator) Current() *View {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.current
}

// Close stops the current view.
func (n *Navigator) Close(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil {
		return nil
	}

	err := n.current.Stop(ctx)
	n.current = nil

	return err
}
