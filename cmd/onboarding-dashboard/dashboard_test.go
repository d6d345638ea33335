package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/config"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/log"
	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

func newTestDashboard(t *testing.T, simulate bool) *Dashboard {
	t.Helper()

	d, err := NewDashboard(context.Background(), log.Discard(), Options{
		StoreURL: "memory://",
		EventBus: "gochannel",
		Tracking: config.Default(),
		Simulate: simulate,
	})
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))

	t.Cleanup(func() {
		assert.NoError(t, d.Close(context.Background()))
	})

	return d
}

func get(t *testing.T, d *Dashboard, path string) (int, string) {
	t.Helper()

	resp, err := d.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestNewDashboard_RejectsBadOptions(t *testing.T) {
	_, err := NewDashboard(context.Background(), log.Discard(), Options{
		StoreURL: "mongodb://localhost",
		Tracking: config.Default(),
	})
	require.Error(t, err)

	_, err = NewDashboard(context.Background(), log.Discard(), Options{
		StoreURL: "memory://",
		Tracking: config.TrackingConfig{},
	})
	require.Error(t, err)
}

func TestDashboard_Endpoints(t *testing.T) {
	d := newTestDashboard(t, false)

	status, body := get(t, d, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Onboarding Dashboard", body)

	status, _ = get(t, d, "/livez")
	assert.Equal(t, http.StatusOK, status)

	status, _ = get(t, d, "/readyz")
	assert.Equal(t, http.StatusOK, status)

	status, body = get(t, d, "/api/state")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"metrics"`)

	status, body = get(t, d, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "onboarding_reconciliations_total")
}

func TestDashboard_ReloadReplacesView(t *testing.T) {
	d := newTestDashboard(t, false)

	first := d.navigator.Current()
	require.NoError(t, d.Reload(context.Background()))

	assert.False(t, first.Running())
	assert.True(t, d.navigator.Current().Running())
}

func TestDashboard_EmbeddedSimulatorConverges(t *testing.T) {
	d := newTestDashboard(t, true)

	assert.Eventually(t, func() bool {
		cases := d.navigator.Current().Visible().Cases

		return cases[0].ProgressPercent == 20 && cases[1].ProgressPercent == 15
	}, 5*time.Second, 50*time.Millisecond)

	jordan := d.navigator.Current().Visible().Cases[1]
	assert.Equal(t, models.StageWeek1, jordan.Stage)

	assert.Eventually(t, func() bool { return d.navigator.Current().Session().Open }, 5*time.Second, 50*time.Millisecond)
}
