package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	criteria "github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/infrastructure/events"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/infrastructure/httpapi"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/infrastructure/memory"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/infrastructure/metrics"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/infrastructure/pg"
	"github.com/krew-solutions/ascetic-criteria-go/examples/catalog"
)

const (
	slowCompile     = 50 * time.Millisecond
	shutdownTimeout = 15 * time.Second
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &datasetFlags{}
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve filtering over HTTP",
		Long: `Serve the product catalog as the "products" dataset. When postgres.host
is configured the products table is served as "products-pg" too.
Prometheus metrics are exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				rootOpts.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, cmd, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default http.addr)")
	return cmd
}

func runServe(ctx context.Context, opts *RootOptions, cmd *cobra.Command, flags *datasetFlags) error {
	logger := opts.logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	hub := events.NewHub()
	hub.Forward(metrics.NewCollector(reg))
	hub.Compiles.Attach(events.SlowCompiles(logger, slowCompile), "slow-compiles")
	copts := opts.criteriaOptions(criteria.WithObserver(hub))

	products, err := flags.products(cmd)
	if err != nil {
		return err
	}
	datasets := httpapi.NewDatasets()
	datasets.Register("products", memory.NewSlice(products, copts...))

	if opts.cfg.Postgres.Enabled() {
		pool, err := pgxpool.New(ctx, opts.cfg.Postgres.DSN())
		if err != nil {
			return errors.Wrap(err, "postgres")
		}
		defer pool.Close()
		repo := pg.NewRepository[catalog.Product](pool, pg.WithLogger(logger), pg.WithCriteriaOptions(copts...))
		datasets.Register("products-pg", repo)
		logger.Info("postgres dataset registered", "table", repo.Table(), "host", opts.cfg.Postgres.Host)
	}

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              opts.cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(httpapi.NewHandlers(datasets, logger), metrics.Handler(reg)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", server.Addr, "datasets", datasets.Names())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return <-errCh
}
