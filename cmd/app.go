package cmd

import (
	"context"

	"fwdctl/internal/config"
	"fwdctl/internal/kube"
	"fwdctl/internal/orchestrator"
	"fwdctl/internal/registry"
	"fwdctl/internal/sweeper"
)

// app wires the store, registry, gateway, orchestrator and sweeper for one
// command invocation.
type app struct {
	store *config.Store
	reg   *registry.Registry
	gw    *kube.KubeGateway
	orch  *orchestrator.Orchestrator
	sweep *sweeper.Sweeper

	stopListen context.CancelFunc
}

// newApp opens the store, loads the registry and connects the gateway's push
// events to it.
func newApp() (*app, error) {
	path := dbPathFlag
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	store, err := config.OpenStore(path)
	if err != nil {
		return nil, err
	}

	configs, err := store.GetAll()
	if err != nil {
		store.Close()
		return nil, err
	}
	states, err := store.GetStates()
	if err != nil {
		store.Close()
		return nil, err
	}

	reg := registry.New()
	reg.Load(configs, states)

	gw := kube.NewGateway()
	listenCtx, stopListen := context.WithCancel(context.Background())
	go reg.Listen(listenCtx, gw.Events())

	a := &app{
		store:      store,
		reg:        reg,
		gw:         gw,
		orch:       orchestrator.New(gw, reg, store),
		sweep:      sweeper.New(gw, reg),
		stopListen: stopListen,
	}
	return a, nil
}

func (a *app) close() {
	a.stopListen()
	a.store.Close()
}
