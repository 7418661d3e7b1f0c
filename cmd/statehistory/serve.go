package main

import (
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/statehistory/pkg/httpserver"
	"github.com/dmitrymomot/statehistory/pkg/stateapi"
	"github.com/dmitrymomot/statehistory/pkg/statehistory"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the state API over HTTP",
		Long: `Serves the state API under /states, liveness on /healthz, readiness on
/readyz and Prometheus metrics on /metrics until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			notifier, err := a.notifier(ctx)
			if err != nil {
				return err
			}
			promReg, metrics := a.metrics()
			opts := []statehistory.Option{statehistory.WithMetrics(metrics)}
			if notifier != nil {
				opts = append(opts, statehistory.WithNotifier(notifier))
			}
			states, err := a.states(opts...)
			if err != nil {
				return err
			}

			r := chi.NewRouter()
			r.Mount("/states", stateapi.NewHandler(states, stateapi.WithLogger(a.log)).Routes())
			r.Get("/healthz", httpserver.HealthCheckHandler(a.log))
			r.Get("/readyz", httpserver.HealthCheckHandler(a.log, a.checks...))
			r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

			serverOpts := []httpserver.Option{
				httpserver.WithLogger(a.log),
				httpserver.WithStartHook(func(bound string) {
					fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", bound)
				}),
			}
			if addr != "" {
				serverOpts = append(serverOpts, httpserver.WithAddr(addr))
			}
			return httpserver.NewFromConfig(a.cfg.HTTP, serverOpts...).Run(ctx, r)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return cmd
}
