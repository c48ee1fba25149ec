package orchestrator

import (
	"context"
	"sync"

	"fwdctl/internal/config"
	"fwdctl/internal/gateway"
)

// mockGateway implements gateway.Gateway with per-method override funcs and
// records every call in order.
type mockGateway struct {
	mu    sync.Mutex
	calls []string

	StartForwardFunc      func(params gateway.DirectForwardParams) error
	StopForwardFunc       func(params gateway.DirectStopParams) error
	StartProxyForwardFunc func(params gateway.ProxyForwardParams) error
	StopProxyForwardFunc  func(params gateway.ProxyStopParams) error
	ListOwnedFunc         func(params gateway.ListResourcesParams) ([]gateway.NamespaceGroup, error)
	DeleteResourceFunc    func(params gateway.DeleteResourceParams) error
	CleanupFunc           func(params gateway.CleanupParams) (string, error)
}

func (m *mockGateway) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockGateway) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockGateway) StartForward(ctx context.Context, params gateway.DirectForwardParams) error {
	m.record("StartForward")
	if m.StartForwardFunc != nil {
		return m.StartForwardFunc(params)
	}
	return nil
}

func (m *mockGateway) StopForward(ctx context.Context, params gateway.DirectStopParams) error {
	m.record("StopForward")
	if m.StopForwardFunc != nil {
		return m.StopForwardFunc(params)
	}
	return nil
}

func (m *mockGateway) StartProxyForward(ctx context.Context, params gateway.ProxyForwardParams) error {
	m.record("StartProxyForward")
	if m.StartProxyForwardFunc != nil {
		return m.StartProxyForwardFunc(params)
	}
	return nil
}

func (m *mockGateway) StopProxyForward(ctx context.Context, params gateway.ProxyStopParams) error {
	m.record("StopProxyForward")
	if m.StopProxyForwardFunc != nil {
		return m.StopProxyForwardFunc(params)
	}
	return nil
}

func (m *mockGateway) ListOwnedResources(ctx context.Context, params gateway.ListResourcesParams) ([]gateway.NamespaceGroup, error) {
	m.record("ListOwnedResources")
	if m.ListOwnedFunc != nil {
		return m.ListOwnedFunc(params)
	}
	return nil, nil
}

func (m *mockGateway) DeleteResource(ctx context.Context, params gateway.DeleteResourceParams) error {
	m.record("DeleteResource")
	if m.DeleteResourceFunc != nil {
		return m.DeleteResourceFunc(params)
	}
	return nil
}

func (m *mockGateway) CleanupResources(ctx context.Context, params gateway.CleanupParams) (string, error) {
	m.record("CleanupResources")
	if m.CleanupFunc != nil {
		return m.CleanupFunc(params)
	}
	return "Successfully deleted 0 resources", nil
}

// mockStore implements ConfigWriter, recording updates and running flags.
type mockStore struct {
	mu      sync.Mutex
	updates []config.Config
	running map[int64]bool

	UpdateFunc func(c config.Config) error
}

func newMockStore() *mockStore {
	return &mockStore{running: make(map[int64]bool)}
}

func (m *mockStore) Update(c config.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateFunc != nil {
		if err := m.UpdateFunc(c); err != nil {
			return err
		}
	}
	m.updates = append(m.updates, c)
	return nil
}

func (m *mockStore) SetRunning(id int64, running bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[id] = running
	return nil
}

func (m *mockStore) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}
