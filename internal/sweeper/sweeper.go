package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fwdctl/internal/gateway"
	"fwdctl/internal/registry"
	"fwdctl/pkg/logging"
)

const (
	// DefaultContextTimeout bounds every per-context backend call. A context
	// that exceeds it is skipped with a warning, never failing the sweep.
	DefaultContextTimeout = 8 * time.Second

	// DefaultMaxConcurrent caps the fan-out of simultaneous per-context
	// calls. The per-context timeout already bounds worst-case latency; the
	// cap keeps a kubeconfig with many contexts from opening that many API
	// connections at once.
	DefaultMaxConcurrent = 4
)

// Phase is the sweep state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseListing
	PhaseDone
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseListing:
		return "listing"
	case PhaseDone:
		return "done"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ContextResult is the outcome of one per-context listing inside a
// multi-context sweep.
type ContextResult struct {
	Context  string
	Groups   []gateway.NamespaceGroup
	Err      error
	TimedOut bool
}

// Progress reports how many contexts of a multi-context sweep have
// completed, for progressive rendering.
type Progress struct {
	Completed int
	Total     int
}

// UpdateFunc receives each per-context result incrementally as it completes.
type UpdateFunc func(result ContextResult, progress Progress)

// Sweeper reconciles the local configuration inventory against actual
// cluster state. Every sweep run carries a generation token; results
// arriving after the run was cancelled or superseded are dropped.
type Sweeper struct {
	gw  gateway.Gateway
	reg *registry.Registry

	// Timeout and MaxConcurrent are tunables; the constructor fills in the
	// defaults.
	Timeout       time.Duration
	MaxConcurrent int

	mu         sync.Mutex
	generation uint64
	phase      Phase
	cancelRun  context.CancelFunc
}

// New creates a sweeper over the given gateway and registry.
func New(gw gateway.Gateway, reg *registry.Registry) *Sweeper {
	return &Sweeper{
		gw:            gw,
		reg:           reg,
		Timeout:       DefaultContextTimeout,
		MaxConcurrent: DefaultMaxConcurrent,
		phase:         PhaseIdle,
	}
}

// Phase returns the current sweep phase.
func (s *Sweeper) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Cancel aborts the in-flight sweep, if any. Calls already in flight are not
// interrupted; their results fail the generation check and are discarded on
// arrival.
func (s *Sweeper) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseListing {
		return
	}
	s.generation++
	s.phase = PhaseAborted
	if s.cancelRun != nil {
		s.cancelRun()
	}
	logging.Debug("Sweeper", "Sweep cancelled, now at generation %d", s.generation)
}

// begin starts a new sweep run, superseding any previous one, and returns
// the run's generation token and context.
func (s *Sweeper) begin(ctx context.Context) (uint64, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.generation++
	s.phase = PhaseListing
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRun = cancel
	return s.generation, runCtx
}

// current reports whether gen is still the active generation.
func (s *Sweeper) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}

// finish moves the state machine to Done unless the run was superseded.
func (s *Sweeper) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.phase = PhaseDone
		s.cancelRun = nil
	}
}

// kubeconfigFor resolves the kubeconfig used for one context from the
// configurations that reference it.
func (s *Sweeper) kubeconfigFor(clusterContext string) string {
	for _, c := range s.reg.ConfigsForContext(clusterContext) {
		if c.Kubeconfig != "" {
			return c.Kubeconfig
		}
	}
	return ""
}

// classify re-derives every resource's orphan flag from the freshest
// configuration snapshot: a resource is orphaned when it carries no config
// id, or an id unknown for that context.
func (s *Sweeper) classify(clusterContext string, groups []gateway.NamespaceGroup) []gateway.NamespaceGroup {
	known := s.reg.KnownIDsForContext(clusterContext)

	classified := make([]gateway.NamespaceGroup, len(groups))
	for i, group := range groups {
		resources := make([]gateway.Resource, len(group.Resources))
		for j, res := range group.Resources {
			res.Context = clusterContext
			if res.ConfigID == nil {
				res.Orphaned = true
			} else {
				_, active := known[*res.ConfigID]
				res.Orphaned = !active
			}
			resources[j] = res
		}
		classified[i] = gateway.NamespaceGroup{Namespace: group.Namespace, Resources: resources}
	}
	return classified
}

// SweepContext lists and classifies the owned resources of one context.
func (s *Sweeper) SweepContext(ctx context.Context, clusterContext string) ([]gateway.NamespaceGroup, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	groups, err := s.gw.ListOwnedResources(callCtx, gateway.ListResourcesParams{
		Context:    clusterContext,
		Kubeconfig: s.kubeconfigFor(clusterContext),
	})
	if err != nil {
		return nil, fmt.Errorf("sweep of context %q: %w", clusterContext, err)
	}
	return s.classify(clusterContext, groups), nil
}

// SweepAll fans out one single-context sweep per distinct context known to
// the registry. Each per-context call is independently bounded by the
// timeout; a context that times out or errors is skipped with a warning.
// Results are published incrementally through onUpdate as contexts complete.
// The returned map holds the complete result set, keyed by context.
func (s *Sweeper) SweepAll(ctx context.Context, onUpdate UpdateFunc) (map[string][]gateway.NamespaceGroup, error) {
	contexts := s.reg.Contexts()
	gen, runCtx := s.begin(ctx)
	defer s.finish(gen)

	if len(contexts) == 0 {
		return map[string][]gateway.NamespaceGroup{}, nil
	}

	total := len(contexts)
	sem := make(chan struct{}, s.MaxConcurrent)
	resultCh := make(chan ContextResult)

	for _, clusterContext := range contexts {
		go func(cc string) {
			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				resultCh <- ContextResult{Context: cc, Err: runCtx.Err()}
				return
			}
			defer func() { <-sem }()

			groups, err := s.SweepContext(runCtx, cc)
			resultCh <- ContextResult{
				Context:  cc,
				Groups:   groups,
				Err:      err,
				TimedOut: errors.Is(err, context.DeadlineExceeded),
			}
		}(clusterContext)
	}

	results := make(map[string][]gateway.NamespaceGroup)
	completed := 0
	for completed < total {
		res := <-resultCh
		completed++

		// Late or superseded results are dropped: nothing published after a
		// cancellation may mutate what the caller is displaying.
		if !s.current(gen) {
			logging.Debug("Sweeper", "Dropping result for context %q from superseded sweep", res.Context)
			continue
		}

		if res.Err != nil {
			if res.TimedOut {
				logging.Warn("Sweeper", "Context %q timed out after %s, skipping", res.Context, s.Timeout)
			} else {
				logging.Warn("Sweeper", "Context %q failed, skipping: %v", res.Context, res.Err)
			}
		} else {
			results[res.Context] = res.Groups
		}

		if onUpdate != nil {
			onUpdate(res, Progress{Completed: completed, Total: total})
		}
	}

	if !s.current(gen) {
		return nil, context.Canceled
	}
	return results, nil
}
