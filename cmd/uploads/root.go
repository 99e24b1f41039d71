package main

import (
	"context"
	stderrors "errors"
	iofs "io/fs"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/config"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
)

// options carries the persistent flags and the collaborators commands reach
// for. Tests replace the collaborators.
type options struct {
	configPath string
	envFile    string

	loadConfig func(path string) (config.Config, error)
	newStore   func(ctx context.Context, cfg config.Config) (store.SessionStore, error)
	fsys       fs.Filesystem // nil means the local disk
	now        func() time.Time
}

func newOptions() *options {
	return &options{
		loadConfig: config.Load,
		newStore:   buildStore,
		now:        time.Now,
	}
}

// settings loads and validates the service configuration.
func (o *options) settings() (config.Config, error) {
	cfg, err := o.loadConfig(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// uploadSettings loads the configuration and validates only the upload
// policy, for commands that never contact the store.
func (o *options) uploadSettings() (config.Config, error) {
	cfg, err := o.loadConfig(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ValidateUpload(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Multipart upload orchestration for S3-compatible object stores",
		Long: `uploads plans large file uploads, issues presigned part URLs and
completes or aborts multipart uploads on S3, MinIO or any S3-compatible store.

The byte transfer itself is done by the Agent, which PUTs each part to its
presigned URL and reports back through the HTTP API.

Example:
  uploads serve --config config.yaml
  uploads plan ./dataset.tar
  uploads abort --upload-id abc --bucket uploads --key 20260114_093000_dataset.tar
  uploads agent start ./dataset.tar`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := godotenv.Load(opts.envFile); err != nil && !stderrors.Is(err, iofs.ErrNotExist) {
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default is $UPLOADS_CONFIG or ./config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the configuration")

	cmd.AddCommand(
		newServeCmd(opts),
		newPlanCmd(opts),
		newAbortCmd(opts),
		newAgentCmd(),
	)
	return cmd
}
