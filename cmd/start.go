package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"fwdctl/internal/config"
)

// resolveConfigs maps id or alias arguments onto configurations.
func resolveConfigs(a *app, args []string) ([]config.Config, error) {
	var configs []config.Config
	for _, arg := range args {
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
			cfg, ok := a.reg.Get(id)
			if !ok {
				return nil, fmt.Errorf("no configuration with id %d", id)
			}
			configs = append(configs, cfg)
			continue
		}

		found := false
		for _, cfg := range a.reg.GetAll() {
			if cfg.Alias == arg {
				configs = append(configs, cfg)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no configuration with id or alias %q", arg)
		}
	}
	return configs, nil
}

func newStartCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "start [id|alias]...",
		Short: "Start port-forward sessions",
		Long: `Starts the sessions for the given configurations, addressed by id or
alias. With --all, every configuration that is not already running is
started. Failures are independent: one failing session never prevents the
others from starting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("specify configuration ids or aliases, or --all")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var targets []config.Config
			if all {
				snap := a.reg.Snapshot()
				for _, c := range snap.Configs {
					if !snap.Running[c.ID] {
						targets = append(targets, c)
					}
				}
			} else {
				targets, err = resolveConfigs(a, args)
				if err != nil {
					return err
				}
			}

			if len(targets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to start.")
				return nil
			}

			report := a.orch.StartMany(cmd.Context(), targets)
			var started []config.Config
			for _, cfg := range targets {
				for _, id := range report.Succeeded {
					if cfg.ID == id {
						started = append(started, cfg)
						fmt.Fprintf(cmd.OutOrStdout(), "Started %s (config %d) on %s:%d\n",
							cfg.DisplayName(), cfg.ID, cfg.LocalAddress, cfg.LocalPort)
					}
				}
			}
			if report.Failed() {
				fmt.Fprintln(cmd.ErrOrStderr(), report.Summary())
			}
			if len(started) == 0 {
				return fmt.Errorf("no session could be started")
			}

			// The forwards live in this process; hold them open until the
			// user interrupts.
			fmt.Fprintln(cmd.OutOrStdout(), "Forwarding... press Ctrl-C to stop.")
			waitCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-waitCtx.Done()

			fmt.Fprintln(cmd.OutOrStdout(), "Stopping sessions...")
			stopReport := a.orch.StopMany(context.Background(), started)
			if stopReport.Failed() {
				return fmt.Errorf("%s", stopReport.Summary())
			}
			if report.Failed() {
				return fmt.Errorf("%d of %d sessions failed to start", len(report.Failures), len(targets))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Start every configuration that is not already running")
	return cmd
}
