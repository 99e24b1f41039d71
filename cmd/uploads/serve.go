package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/config"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
)

const readHeaderTimeout = 10 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the upload orchestration HTTP API",
		Long: `Serve the upload API on the configured address:

  POST /api/upload/initiate   start a multipart upload and get its chunk plan
  GET  /api/upload/presign    presigned PUT URLs for a batch of parts
  POST /api/upload/complete   assemble the uploaded parts
  POST /api/upload/abort      discard an unfinished upload
  GET  /health                bucket reachability
  GET  /metrics               Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg.Log, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			handler, err := newService(ctx, opts, cfg, logger)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              cfg.Server.Address,
				Handler:           handler,
				ReadHeaderTimeout: readHeaderTimeout,
			}
			return runServer(ctx, srv, cfg.Server.ShutdownTimeout, logger)
		},
	}
}

// newService wires the store, orchestrator and HTTP router.
func newService(ctx context.Context, opts *options, cfg config.Config, logger *slog.Logger) (http.Handler, error) {
	s, err := opts.newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s store: %w", cfg.Store.Driver, err)
	}
	// A missing bucket is reported by /health rather than blocking startup.
	if cfg.Store.EnsureBucket {
		_ = store.EnsureBucket(ctx, s, cfg.Upload.DefaultBucket, logger)
	}

	m := metrics.New()
	orch, err := uploads.New(s, append(cfg.OrchestratorOptions(),
		uploads.WithLogger(logger),
		uploads.WithMetrics(m),
		uploads.WithClock(opts.now),
	)...)
	if err != nil {
		return nil, err
	}
	return api.NewRouter(orch, logger, m), nil
}

// runServer serves until ctx ends, then drains connections for up to timeout.
func runServer(ctx context.Context, srv *http.Server, timeout time.Duration, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("uploads API listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", timeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
