package orchestrator

import (
	"context"
	"fmt"

	"fwdctl/internal/config"
	"fwdctl/internal/gateway"
	"fwdctl/internal/registry"
	"fwdctl/pkg/logging"
)

// ConfigWriter is the subset of the configuration store the orchestrator
// needs: persisting edits and the last confirmed running flag.
type ConfigWriter interface {
	Update(c config.Config) error
	SetRunning(id int64, running bool) error
}

// Orchestrator decides which gateway commands to issue for start, stop, edit
// and bulk operations, and aggregates partial failures. It never mutates the
// registry directly; every state change goes through the registry API and
// only after the gateway call has resolved.
type Orchestrator struct {
	gw    gateway.Gateway
	reg   *registry.Registry
	store ConfigWriter
}

// New creates an orchestrator over the given gateway, registry and store.
func New(gw gateway.Gateway, reg *registry.Registry, store ConfigWriter) *Orchestrator {
	return &Orchestrator{gw: gw, reg: reg, store: store}
}

// Start starts the session for one configuration. On success the registry
// and the persisted state are marked running; on failure the state is left
// unchanged and the error carries the configuration id.
func (o *Orchestrator) Start(ctx context.Context, cfg config.Config) error {
	route, err := ResolveRoute(cfg.WorkloadType, cfg.Protocol)
	if err != nil {
		return fmt.Errorf("config %d: %w", cfg.ID, err)
	}

	logging.Debug("Orchestrator", "Starting config %d (%s) via %s route", cfg.ID, cfg.DisplayName(), route)

	switch route {
	case RouteDirect:
		err = o.gw.StartForward(ctx, gateway.DirectForwardParams{Config: cfg})
	case RouteProxy:
		err = o.gw.StartProxyForward(ctx, gateway.ProxyForwardParams{Config: cfg})
	}
	if err != nil {
		return fmt.Errorf("config %d: %w", cfg.ID, err)
	}

	o.markRunning(cfg.ID, true)
	logging.Info("Orchestrator", "Started forward for config %d (%s)", cfg.ID, cfg.DisplayName())
	return nil
}

// Stop stops the session for one configuration. Stopping a session that is
// not running is a no-op. On success the registry and the persisted state
// are marked not running.
func (o *Orchestrator) Stop(ctx context.Context, cfg config.Config) error {
	if !o.reg.IsRunning(cfg.ID) {
		logging.Debug("Orchestrator", "Config %d is not running, stop is a no-op", cfg.ID)
		return nil
	}
	if err := o.stopRouted(ctx, cfg); err != nil {
		return fmt.Errorf("config %d: %w", cfg.ID, err)
	}
	o.markRunning(cfg.ID, false)
	logging.Info("Orchestrator", "Stopped forward for config %d (%s)", cfg.ID, cfg.DisplayName())
	return nil
}

// stopRouted issues the routed stop command without touching session state.
func (o *Orchestrator) stopRouted(ctx context.Context, cfg config.Config) error {
	route, err := ResolveRoute(cfg.WorkloadType, cfg.Protocol)
	if err != nil {
		return err
	}

	switch route {
	case RouteDirect:
		return o.gw.StopForward(ctx, gateway.DirectStopParams{
			ServiceName: cfg.Service,
			ConfigID:    cfg.ID,
		})
	case RouteProxy:
		return o.gw.StopProxyForward(ctx, gateway.ProxyStopParams{
			ConfigID:      cfg.ID,
			Namespace:     cfg.Namespace,
			ServiceName:   cfg.Service,
			LocalPort:     cfg.LocalPort,
			RemoteAddress: cfg.RemoteAddress,
			Protocol:      cfg.Protocol,
			Context:       cfg.Context,
			Kubeconfig:    cfg.Kubeconfig,
		})
	}
	return nil
}

// StartMany starts each configuration independently and collects failures.
// One failing item never aborts the remaining items.
func (o *Orchestrator) StartMany(ctx context.Context, configs []config.Config) BulkReport {
	report := BulkReport{Operation: "started"}
	for _, cfg := range configs {
		if err := o.Start(ctx, cfg); err != nil {
			report.Failures = append(report.Failures, ItemFailure{
				ID:   cfg.ID,
				Name: cfg.DisplayName(),
				Err:  err,
			})
			continue
		}
		report.Succeeded = append(report.Succeeded, cfg.ID)
	}
	if len(report.Failures) > 0 {
		logging.Warn("Orchestrator", "Bulk start finished with %d of %d failures", len(report.Failures), len(configs))
	}
	return report
}

// StopMany stops each configuration independently and collects failures.
func (o *Orchestrator) StopMany(ctx context.Context, configs []config.Config) BulkReport {
	report := BulkReport{Operation: "stopped"}
	for _, cfg := range configs {
		if err := o.Stop(ctx, cfg); err != nil {
			report.Failures = append(report.Failures, ItemFailure{
				ID:   cfg.ID,
				Name: cfg.DisplayName(),
				Err:  err,
			})
			continue
		}
		report.Succeeded = append(report.Succeeded, cfg.ID)
	}
	if len(report.Failures) > 0 {
		logging.Warn("Orchestrator", "Bulk stop finished with %d of %d failures", len(report.Failures), len(configs))
	}
	return report
}

// SaveEdit persists an edited configuration. If the session is currently
// running the edit is applied as a saga: stop using the pre-edit routing,
// persist, start using the post-edit routing. A failed stop aborts the saga
// before anything is persisted. A failed restart after a successful persist
// is surfaced but the edit is kept; the configuration write is the user's
// source of truth.
func (o *Orchestrator) SaveEdit(ctx context.Context, edited config.Config) error {
	if err := edited.Validate(); err != nil {
		return err
	}

	old, known := o.reg.Get(edited.ID)
	if !known || !o.reg.IsRunning(edited.ID) {
		if err := o.store.Update(edited); err != nil {
			return fmt.Errorf("failed to persist edit of config %d: %w", edited.ID, err)
		}
		o.reg.Upsert(edited)
		return nil
	}

	// Route on the pre-edit values: workload type, protocol or addressing
	// may all have changed in the edit.
	logging.Info("Orchestrator", "Config %d is running, applying edit as stop/persist/start", edited.ID)
	if err := o.stopRouted(ctx, old); err != nil {
		return &gateway.SagaAbortedError{ConfigID: edited.ID, Cause: err}
	}
	o.markRunning(edited.ID, false)

	if err := o.store.Update(edited); err != nil {
		return fmt.Errorf("session stopped but failed to persist edit of config %d: %w", edited.ID, err)
	}
	o.reg.Upsert(edited)

	if err := o.Start(ctx, edited); err != nil {
		return fmt.Errorf("edit saved, but session failed to resume: %w", err)
	}
	return nil
}

// HandleConfigDeleted purges session state for a deleted configuration so no
// observer can see a removed id report running=true.
func (o *Orchestrator) HandleConfigDeleted(id int64) {
	o.reg.Remove(id)
}

// markRunning records a confirmed state transition in the registry and the
// durable store.
func (o *Orchestrator) markRunning(id int64, running bool) {
	o.reg.ApplyStateEvent(id, running)
	if err := o.store.SetRunning(id, running); err != nil {
		logging.Warn("Orchestrator", "Failed to persist running=%t for config %d: %v", running, id, err)
	}
}
