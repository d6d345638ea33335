// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store/file"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store/memory"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store/postgres"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store/redis"
)

var supportedStoreSchemes = []string{"memory", "file", "redis", "rediss", "postgres", "postgresql"}

// StoreOpener opens clients of the shared store named by a URL. Clients of a
// memory:// store opened by the same opener share one backend.
type StoreOpener struct {
	url     string
	scheme  string
	logger  *slog.Logger
	backend *memory.Backend
}

func NewStoreOpener(url string, logger *slog.Logger) (*StoreOpener, error) {
	scheme := store.Scheme(url)

	supported := false

	for _, s := range supportedStoreSchemes {
		if s == scheme {
			supported = true
		}
	}

	if !supported {
		return nil, fmt.Errorf("%w: %q (supported: %s)", store.ErrUnsupportedURL, url, strings.Join(supportedStoreSchemes, ", "))
	}

	o := &StoreOpener{url: url, scheme: scheme, logger: logger}
	if scheme == "memory" {
		o.backend = memory.NewBackend()
	}

	return o, nil
}

// Open returns a client identified by origin in change notifications.
func (o *StoreOpener) Open(ctx context.Context, origin string) (store.Store, error) {
	logger := o.logger.With("store", o.scheme, "origin", origin)

	var (
		s   store.Store
		err error
	)

	switch o.scheme {
	case "memory":
		return o.backend.Client(origin), nil
	case "file":
		s, err = file.New(o.url)
	case "redis", "rediss":
		s, err = redis.New(ctx, logger, o.url, redis.WithOrigin(origin))
	default:
		s, err = postgres.New(ctx, logger, o.url, postgres.WithOrigin(origin))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", o.scheme, err)
	}

	return s, nil
}

// Dropped reports the change notifications dropped by a memory backend.
func (o *StoreOpener) Dropped() func() float64 {
	if o.backend == nil {
		return nil
	}

	return func() float64 { return float64(o.backend.Dropped()) }
}
