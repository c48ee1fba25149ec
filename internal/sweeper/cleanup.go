package sweeper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"fwdctl/internal/gateway"
	"fwdctl/pkg/logging"
)

// CleanupPlan enumerates the exact resources a bulk cleanup would delete.
// Cleanup is never dispatched without the caller confirming a plan first.
type CleanupPlan struct {
	Mode      gateway.CleanupMode
	Contexts  []string
	Resources []gateway.Resource
	// IncludesActive is set when the plan contains non-orphaned resources,
	// which back currently-running forwards.
	IncludesActive bool
}

// Describe renders the confirmation text listing every resource to delete.
func (p CleanupPlan) Describe() string {
	if len(p.Resources) == 0 {
		return "No resources to delete."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The following %d resource(s) will be deleted:\n", len(p.Resources))
	for _, res := range p.Resources {
		marker := "orphaned"
		if !res.Orphaned {
			marker = "ACTIVE"
		}
		fmt.Fprintf(&b, "  - [%s] %s/%s %s (%s)\n", res.Context, res.Namespace, res.Name, res.ResourceType, marker)
	}
	if p.IncludesActive {
		b.WriteString("\nWarning: active resources back currently-running forwards; deleting them will tear down live sessions.")
	}
	return b.String()
}

// ContextFailure is one failed per-context call of a bulk cleanup.
type ContextFailure struct {
	Context string
	Err     error
}

// CleanupReport aggregates a bulk cleanup across contexts.
type CleanupReport struct {
	Deleted  int
	Failures []ContextFailure
}

// Failed reports whether any context failed.
func (r CleanupReport) Failed() bool {
	return len(r.Failures) > 0
}

// Summary renders the single aggregated report for the whole cleanup.
func (r CleanupReport) Summary() string {
	if !r.Failed() {
		return fmt.Sprintf("Deleted %d resource(s)", r.Deleted)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Deleted %d resource(s); %d context(s) failed:", r.Deleted, len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\n  - %s: %v", f.Context, f.Err)
	}
	return b.String()
}

// DeleteResource deletes exactly one remote resource and, on success,
// re-runs the sweep for the affected context so orphan status is fresh. On
// failure the error is returned and the resource stays listed.
func (s *Sweeper) DeleteResource(ctx context.Context, res gateway.Resource) ([]gateway.NamespaceGroup, error) {
	err := s.gw.DeleteResource(ctx, gateway.DeleteResourceParams{
		Context:      res.Context,
		Namespace:    res.Namespace,
		ResourceType: res.ResourceType,
		Name:         res.Name,
		ConfigID:     res.ConfigID,
		Kubeconfig:   s.kubeconfigFor(res.Context),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s %s/%s: %w", res.ResourceType, res.Namespace, res.Name, err)
	}

	logging.Info("Sweeper", "Deleted %s %s/%s in context %s", res.ResourceType, res.Namespace, res.Name, res.Context)
	return s.SweepContext(ctx, res.Context)
}

// PlanCleanup sweeps the given contexts and enumerates what a cleanup in the
// given mode would delete. Contexts that fail to list are skipped, matching
// sweep semantics.
func (s *Sweeper) PlanCleanup(ctx context.Context, contexts []string, mode gateway.CleanupMode) (CleanupPlan, error) {
	plan := CleanupPlan{Mode: mode, Contexts: contexts}

	for _, clusterContext := range contexts {
		groups, err := s.SweepContext(ctx, clusterContext)
		if err != nil {
			logging.Warn("Sweeper", "Skipping context %q in cleanup plan: %v", clusterContext, err)
			continue
		}
		for _, group := range groups {
			for _, res := range group.Resources {
				if mode == gateway.CleanupOrphaned && !res.Orphaned {
					continue
				}
				if !res.Orphaned {
					plan.IncludesActive = true
				}
				plan.Resources = append(plan.Resources, res)
			}
		}
	}
	return plan, nil
}

// ExecuteCleanup dispatches the bulk cleanup: one backend call per context,
// fanned out with the same bounded timeout and partial-failure aggregation
// as the sweep. The reported count is the sum of the deleted counts parsed
// from each call's summary.
func (s *Sweeper) ExecuteCleanup(ctx context.Context, contexts []string, mode gateway.CleanupMode) CleanupReport {
	var (
		mu     sync.Mutex
		report CleanupReport
		wg     sync.WaitGroup
	)

	sem := make(chan struct{}, s.MaxConcurrent)
	for _, clusterContext := range contexts {
		wg.Add(1)
		go func(cc string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
			defer cancel()

			summary, err := s.gw.CleanupResources(callCtx, gateway.CleanupParams{
				Context:    cc,
				Kubeconfig: s.kubeconfigFor(cc),
				Mode:       mode,
				KnownIDs:   s.reg.KnownIDsForContext(cc),
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					logging.Warn("Sweeper", "Cleanup for context %q timed out after %s", cc, s.Timeout)
				}
				report.Failures = append(report.Failures, ContextFailure{Context: cc, Err: err})
				return
			}
			deleted := parseDeletedCount(summary)
			report.Deleted += deleted
			logging.Info("Sweeper", "Cleanup for context %q: %s", cc, summary)
		}(clusterContext)
	}
	wg.Wait()
	return report
}

// parseDeletedCount extracts the first integer from a backend cleanup
// summary such as "Deleted 3 resources with 1 errors".
func parseDeletedCount(summary string) int {
	for _, field := range strings.Fields(summary) {
		if n, err := strconv.Atoi(field); err == nil {
			return n
		}
	}
	return 0
}
