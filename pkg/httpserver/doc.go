// Package httpserver runs the state API with graceful shutdown.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	mux := chi.NewRouter()
//	mux.Get("/healthz", httpserver.HealthCheckHandler(log))
//	mux.Get("/readyz", httpserver.HealthCheckHandler(log, pg.Healthcheck(pool, "model_states")))
//	mux.Mount("/states", stateapi.NewHandler(states).Routes())
//	if err := srv.Run(ctx, mux); err != nil {
//	    return err
//	}
//
// Run returns after ctx is cancelled or the process receives SIGINT or
// SIGTERM, once in-flight requests have drained or the shutdown timeout hit.
package httpserver
