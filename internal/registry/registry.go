package registry

import (
	"context"
	"sort"
	"sync"

	"fwdctl/internal/config"
	"fwdctl/internal/gateway"
	"fwdctl/pkg/logging"
)

// Registry is the in-memory table of known configurations and their
// last-observed running flags. It is the single source of truth for callers
// and the only mutable shared state in the system; all mutation goes through
// its API.
type Registry struct {
	mu      sync.RWMutex
	configs map[int64]config.Config
	running map[int64]bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		configs: make(map[int64]config.Config),
		running: make(map[int64]bool),
	}
}

// Load replaces the registry contents from an initial bulk fetch, merging a
// configuration list with a separate running-state list by id. Running flags
// for ids without a configuration are dropped.
func (r *Registry) Load(configs []config.Config, states map[int64]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs = make(map[int64]config.Config, len(configs))
	r.running = make(map[int64]bool, len(configs))
	for _, c := range configs {
		r.configs[c.ID] = c
		if states[c.ID] {
			r.running[c.ID] = true
		}
	}
}

// GetAll returns all configurations sorted by id.
func (r *Registry) GetAll() []config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	configs := make([]config.Config, 0, len(r.configs))
	for _, c := range r.configs {
		configs = append(configs, c)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs
}

// Get returns one configuration by id.
func (r *Registry) Get(id int64) (config.Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[id]
	return c, ok
}

// IsRunning reports the last-observed running flag for id. Ids without a
// configuration always report false.
func (r *Registry) IsRunning(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.configs[id]; !ok {
		return false
	}
	return r.running[id]
}

// ApplyStateEvent records a running-state change for id. Events for ids with
// no configuration are dropped so a removed session can never report running.
func (r *Registry) ApplyStateEvent(id int64, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[id]; !ok {
		logging.Debug("Registry", "Dropping state event for unknown config %d (running=%t)", id, running)
		return
	}
	if running {
		r.running[id] = true
	} else {
		delete(r.running, id)
	}
}

// Upsert adds or replaces a configuration, keeping any existing running flag.
func (r *Registry) Upsert(c config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[c.ID] = c
}

// Remove purges a configuration and its running flag together. No caller can
// observe a removed id reporting running=true.
func (r *Registry) Remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, id)
	delete(r.running, id)
}

// Snapshot is a consistent point-in-time view used for derived computations
// such as selection state.
type Snapshot struct {
	Configs []config.Config
	Running map[int64]bool
}

// Snapshot returns a copy of the registry contents.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Configs: make([]config.Config, 0, len(r.configs)),
		Running: make(map[int64]bool, len(r.running)),
	}
	for _, c := range r.configs {
		snap.Configs = append(snap.Configs, c)
	}
	sort.Slice(snap.Configs, func(i, j int) bool { return snap.Configs[i].ID < snap.Configs[j].ID })
	for id, running := range r.running {
		snap.Running[id] = running
	}
	return snap
}

// Contexts returns the distinct cluster contexts of the known
// configurations, sorted.
func (r *Registry) Contexts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, c := range r.configs {
		seen[c.Context] = struct{}{}
	}
	contexts := make([]string, 0, len(seen))
	for ctx := range seen {
		contexts = append(contexts, ctx)
	}
	sort.Strings(contexts)
	return contexts
}

// ConfigsForContext returns the configurations belonging to one context.
func (r *Registry) ConfigsForContext(clusterContext string) []config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var configs []config.Config
	for _, c := range r.configs {
		if c.Context == clusterContext {
			configs = append(configs, c)
		}
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs
}

// KnownIDsForContext returns the set of configuration ids for one context,
// used by the sweeper to classify orphans.
func (r *Registry) KnownIDsForContext(clusterContext string) map[int64]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make(map[int64]struct{})
	for id, c := range r.configs {
		if c.Context == clusterContext {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// Listen consumes push events from the backend and applies them serially
// until the channel closes or the context is cancelled. It is the single
// writer for asynchronous state changes; run it in one goroutine.
func (r *Registry) Listen(ctx context.Context, events <-chan gateway.StateEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.ApplyStateEvent(ev.ConfigID, ev.Running)
		}
	}
}
