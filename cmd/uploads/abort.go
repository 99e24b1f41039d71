package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/config"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

type abortFlags struct {
	req      uploadtypes.AbortRequest
	retries  uint64
	interval time.Duration
}

func newAbortCmd(opts *options) *cobra.Command {
	var f abortFlags

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Abort an unfinished multipart upload",
		Long: `Abort a multipart upload so the store discards its parts.

A failed abort is retried with exponential backoff up to --retries times.
Malformed session identifiers are not retried.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg.Log, cmd.ErrOrStderr())

			s, err := opts.newStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to create %s store: %w", cfg.Store.Driver, err)
			}
			orch, err := uploads.New(s, append(cfg.OrchestratorOptions(), uploads.WithLogger(logger))...)
			if err != nil {
				return err
			}

			if err := abortWithRetry(cmd.Context(), orch, f, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "aborted upload %s (%s/%s)\n", f.req.UploadID, f.req.Bucket, f.req.ObjectKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.req.UploadID, "upload-id", "", "multipart upload id")
	cmd.Flags().StringVar(&f.req.Bucket, "bucket", "", "bucket holding the upload")
	cmd.Flags().StringVar(&f.req.ObjectKey, "key", "", "object key of the upload")
	cmd.Flags().Uint64Var(&f.retries, "retries", 3, "retries after a failed attempt")
	cmd.Flags().DurationVar(&f.interval, "retry-interval", time.Second, "initial delay between attempts")
	_ = cmd.MarkFlagRequired("upload-id")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

type aborter interface {
	Abort(ctx context.Context, req uploadtypes.AbortRequest) uploadtypes.AbortResult
}

func abortWithRetry(ctx context.Context, a aborter, f abortFlags, logger *slog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.interval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, f.retries), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		res := a.Abort(ctx, f.req)
		if res.Success {
			return nil
		}
		if errors.IsInvalidInput(res.Err) {
			return backoff.Permanent(res.Err)
		}
		logger.Warn("abort attempt failed", "attempt", attempt, "upload_id", f.req.UploadID, "error", res.Err)
		return res.Err
	}, policy)
}
