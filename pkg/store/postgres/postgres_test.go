//go:build integration
// +build integration

package postgres

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/log"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/store"
)

var postgresContainer *tcpostgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}

	os.Exit(code)
}

func setupTestDB(t *testing.T) (context.Context, string) {
	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("onboarding_state_test"),
			tcpostgres.WithUsername("onboarding"),
			tcpostgres.WithPassword("onboarding"),
			tcpostgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)
	defer db.Close()

	_, _ = db.ExecContext(ctx, "TRUNCATE TABLE shared_state")

	return ctx, databaseURL
}

func TestStore_GetSetRemove(t *testing.T) {
	ctx, databaseURL := setupTestDB(t)

	s, err := New(ctx, log.Discard(), databaseURL, WithOrigin("dashboard"))
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, "jordanLeeBGCCompleted")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "jordanLeeBGCCompleted", "true"))
	require.NoError(t, s.Set(ctx, "jordanLeeBGCCompleted", "false"))

	v, ok, err := s.Get(ctx, "jordanLeeBGCCompleted")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "false", v)

	require.NoError(t, s.Remove(ctx, "jordanLeeBGCCompleted"))
	_, ok, err = s.Get(ctx, "jordanLeeBGCCompleted")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetIfAbsent(t *testing.T) {
	ctx, databaseURL := setupTestDB(t)

	s, err := New(ctx, log.Discard(), databaseURL)
	require.NoError(t, err)
	defer s.Close()

	set, err := store.SetIfAbsent(ctx, s, "alexMorganMetricsUpdated", "true")
	require.NoError(t, err)
	assert.True(t, set)

	set, err = store.SetIfAbsent(ctx, s, "alexMorganMetricsUpdated", "true")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestStore_WatchSeesOtherClients(t *testing.T) {
	ctx, databaseURL := setupTestDB(t)

	dashboard, err := New(ctx, log.Discard(), databaseURL, WithOrigin("dashboard"))
	require.NoError(t, err)
	defer dashboard.Close()

	simulator, err := New(ctx, log.Discard(), databaseURL, WithOrigin("simulator"))
	require.NoError(t, err)
	defer simulator.Close()

	var (
		mu   sync.Mutex
		keys []string
	)

	cancel := dashboard.Watch(func(ev store.ChangeEvent) {
		mu.Lock()
		defer mu.Unlock()

		keys = append(keys, ev.Key)
	})
	defer cancel()

	require.NoError(t, dashboard.Set(ctx, "own", "write"))
	require.NoError(t, simulator.Set(ctx, "alexMorganStage", "Pulling BGC Reports"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(keys) == 1 && keys[0] == "alexMorganStage"
	}, 5*time.Second, 20*time.Millisecond)
}
