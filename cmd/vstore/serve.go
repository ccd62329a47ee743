package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vango-dev/vstore/pkg/inspect"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr    string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live inspector",
		Long: `Serve the inspector REST API and WebSocket feed for the store.

Routes:
  GET    /api/fields, /api/fields/{name}
  PUT    /api/fields/{name}
  PATCH  /api/fields/{name}?path=...
  GET    /api/history
  POST   /api/history/{save,undo,redo}
  GET    /ws
  GET    /metrics  (with --metrics)

Examples:
  vstore serve
  vstore serve --addr 127.0.0.1:9090 --metrics`,
		Args: cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			if addr == "" {
				addr = a.cfg.Inspector.Addr
			}
			opts := []inspect.Option{
				inspect.WithLogger(a.logger),
				inspect.WithAddr(addr),
				inspect.WithOrigins(a.cfg.Inspector.AllowedOrigins...),
			}
			if metrics || a.cfg.Inspector.Metrics {
				a.registry.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				opts = append(opts, inspect.WithMetricsHandler(
					promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})))
			}
			srv := inspect.NewServer(a.store, opts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			printBanner(cmd)
			success(cmd, "Inspector on http://%s", displayAddr(addr))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			info(cmd, "Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return <-errCh
		}),
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from the definition file)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Serve Prometheus metrics at /metrics")
	return cmd
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
