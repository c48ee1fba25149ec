package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fwdctl/internal/config"
	"fwdctl/internal/gateway"
	"fwdctl/internal/registry"
)

func testConfig(id int64, workload config.WorkloadType, protocol config.Protocol) config.Config {
	return config.Config{
		ID:           id,
		Service:      "api",
		Namespace:    "default",
		Context:      "prod",
		LocalPort:    8080,
		RemotePort:   80,
		LocalAddress: "127.0.0.1",
		WorkloadType: workload,
		Protocol:     protocol,
	}
}

func newTestOrchestrator(configs ...config.Config) (*Orchestrator, *mockGateway, *mockStore, *registry.Registry) {
	gw := &mockGateway{}
	store := newMockStore()
	reg := registry.New()
	reg.Load(configs, nil)
	return New(gw, reg, store), gw, store, reg
}

func TestStartMarksRunningOnlyAfterSuccess(t *testing.T) {
	cfg := testConfig(1, config.WorkloadService, config.ProtocolTCP)
	orch, gw, store, reg := newTestOrchestrator(cfg)

	require.NoError(t, orch.Start(context.Background(), cfg))
	assert.Equal(t, []string{"StartForward"}, gw.callLog())
	assert.True(t, reg.IsRunning(1))
	assert.True(t, store.running[1])
}

func TestStartFailureLeavesStateUnchanged(t *testing.T) {
	cfg := testConfig(1, config.WorkloadService, config.ProtocolTCP)
	orch, gw, store, reg := newTestOrchestrator(cfg)
	gw.StartForwardFunc = func(gateway.DirectForwardParams) error {
		return errors.New("connection refused")
	}

	err := orch.Start(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config 1")
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, reg.IsRunning(1))
	assert.Empty(t, store.running)
}

func TestStartRoutesUDPThroughProxy(t *testing.T) {
	cfg := testConfig(2, config.WorkloadService, config.ProtocolUDP)
	orch, gw, _, _ := newTestOrchestrator(cfg)

	require.NoError(t, orch.Start(context.Background(), cfg))
	assert.Equal(t, []string{"StartProxyForward"}, gw.callLog())
}

func TestStopIsIdempotent(t *testing.T) {
	cfg := testConfig(1, config.WorkloadService, config.ProtocolTCP)
	orch, gw, _, reg := newTestOrchestrator(cfg)

	// Not running: no gateway command may be issued.
	require.NoError(t, orch.Stop(context.Background(), cfg))
	assert.Empty(t, gw.callLog())

	require.NoError(t, orch.Start(context.Background(), cfg))
	require.NoError(t, orch.Stop(context.Background(), cfg))
	assert.Equal(t, []string{"StartForward", "StopForward"}, gw.callLog())
	assert.False(t, reg.IsRunning(1))

	// Second stop after the first: again a no-op.
	require.NoError(t, orch.Stop(context.Background(), cfg))
	assert.Equal(t, []string{"StartForward", "StopForward"}, gw.callLog())
}

func TestStopFailureKeepsRunning(t *testing.T) {
	cfg := testConfig(1, config.WorkloadService, config.ProtocolTCP)
	orch, gw, _, reg := newTestOrchestrator(cfg)
	require.NoError(t, orch.Start(context.Background(), cfg))

	gw.StopForwardFunc = func(gateway.DirectStopParams) error {
		return errors.New("backend unavailable")
	}
	err := orch.Stop(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, reg.IsRunning(1), "a failed stop must not clear the running flag")
}

func TestStartManyCollectsIndependentFailures(t *testing.T) {
	good1 := testConfig(1, config.WorkloadService, config.ProtocolTCP)
	bad := testConfig(2, config.WorkloadService, config.ProtocolTCP)
	bad.Service = "broken"
	good2 := testConfig(3, config.WorkloadService, config.ProtocolTCP)
	orch, gw, _, reg := newTestOrchestrator(good1, bad, good2)

	gw.StartForwardFunc = func(params gateway.DirectForwardParams) error {
		if params.Config.Service == "broken" {
			return errors.New("no ready pods")
		}
		return nil
	}

	report := orch.StartMany(context.Background(), []config.Config{good1, bad, good2})
	assert.Equal(t, []int64{1, 3}, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, int64(2), report.Failures[0].ID)

	// One failing item never aborts the rest.
	assert.True(t, reg.IsRunning(1))
	assert.False(t, reg.IsRunning(2))
	assert.True(t, reg.IsRunning(3))

	summary := report.Summary()
	assert.Contains(t, summary, "started 2 of 3 configurations")
	assert.Contains(t, summary, "no ready pods")
	assert.Equal(t, 1, strings.Count(summary, "\n"), "summary should be a single aggregated report")
}

func TestSaveEditNotRunningPersistsOnly(t *testing.T) {
	cfg := testConfig(1, config.WorkloadService, config.ProtocolTCP)
	orch, gw, store, reg := newTestOrchestrator(cfg)

	edited := cfg
	edited.LocalPort = 9090
	require.NoError(t, orch.SaveEdit(context.Background(), edited))

	assert.Empty(t, gw.callLog(), "editing a stopped session issues no gateway commands")
	assert.Equal(t, 1, store.updateCount())
	got, _ := reg.Get(1)
	assert.Equal(t, uint16(9090), got.LocalPort)
}

func TestSaveEditRunningStopsWithOldRouteStartsWithNew(t *testing.T) {
	cfg := testConfig(1, config.WorkloadService, config.ProtocolTCP)
	orch, gw, store, reg := newTestOrchestrator(cfg)
	require.NoError(t, orch.Start(context.Background(), cfg))

	var stoppedService string
	gw.StopForwardFunc = func(params gateway.DirectStopParams) error {
		stoppedService = params.ServiceName
		return nil
	}

	// The edit flips the protocol to UDP: the stop must use the pre-edit
	// direct route, the restart the post-edit proxy route.
	edited := cfg
	edited.Protocol = config.ProtocolUDP
	require.NoError(t, orch.SaveEdit(context.Background(), edited))

	assert.Equal(t, []string{"StartForward", "StopForward", "StartProxyForward"}, gw.callLog())
	assert.Equal(t, "api", stoppedService)
	assert.Equal(t, 1, store.updateCount())
	assert.True(t, reg.IsRunning(1))
}

func TestSaveEditAbortsWhenStopFails(t *testing.T) {
	cfg := testConfig(1, config.WorkloadService, config.ProtocolTCP)
	orch, gw, store, reg := newTestOrchestrator(cfg)
	require.NoError(t, orch.Start(context.Background(), cfg))

	gw.StopForwardFunc = func(gateway.DirectStopParams) error {
		return errors.New("stop rejected")
	}

	edited := cfg
	edited.LocalPort = 9090
	err := orch.SaveEdit(context.Background(), edited)
	require.Error(t, err)

	var aborted *gateway.SagaAbortedError
	require.True(t, errors.As(err, &aborted))
	assert.Equal(t, int64(1), aborted.ConfigID)

	// Nothing was persisted; the old values and the running flag survive.
	assert.Equal(t, 0, store.updateCount())
	got, _ := reg.Get(1)
	assert.Equal(t, uint16(8080), got.LocalPort)
	assert.True(t, reg.IsRunning(1))
}

func TestSaveEditKeepsEditWhenRestartFails(t *testing.T) {
	cfg := testConfig(1, config.WorkloadService, config.ProtocolTCP)
	orch, gw, store, reg := newTestOrchestrator(cfg)
	require.NoError(t, orch.Start(context.Background(), cfg))

	gw.StartForwardFunc = func(gateway.DirectForwardParams) error {
		if len(gw.callLog()) > 1 {
			return errors.New("port already bound")
		}
		return nil
	}

	edited := cfg
	edited.LocalPort = 9090
	err := orch.SaveEdit(context.Background(), edited)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edit saved, but session failed to resume")

	// The persisted edit wins; only the session is down.
	assert.Equal(t, 1, store.updateCount())
	got, _ := reg.Get(1)
	assert.Equal(t, uint16(9090), got.LocalPort)
	assert.False(t, reg.IsRunning(1))
}

func TestHandleConfigDeletedPurgesState(t *testing.T) {
	cfg := testConfig(1, config.WorkloadService, config.ProtocolTCP)
	orch, _, _, reg := newTestOrchestrator(cfg)
	require.NoError(t, orch.Start(context.Background(), cfg))

	orch.HandleConfigDeleted(1)
	_, ok := reg.Get(1)
	assert.False(t, ok)
	assert.False(t, reg.IsRunning(1), "a deleted config must never report running")
}
