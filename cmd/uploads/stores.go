package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/config"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store/miniostore"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store/s3store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store/wire"
)

// buildStore connects the backend selected by cfg.Store.Driver.
func buildStore(ctx context.Context, cfg config.Config) (store.SessionStore, error) {
	sc := cfg.Store

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(sc.Region))
		if err != nil {
			return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		awsCfg = &loaded
		return loaded, nil
	}

	var secrets config.SecretsAPI
	if sc.CredentialsSecret != "" {
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		secrets = secretsmanager.NewFromConfig(ac)
	}
	creds, err := config.ResolveCredentials(ctx, secrets, sc)
	if err != nil {
		return nil, err
	}

	switch sc.Driver {
	case config.DriverWire:
		opts := []wire.Option{
			wire.WithRegion(sc.Region),
			wire.WithStaticCredentials(creds.AccessKey, creds.SecretKey),
		}
		if !sc.PathStyle {
			opts = append(opts, wire.WithVirtualHostedStyle())
		}
		c, err := wire.New(sc.Endpoint, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil

	case config.DriverMinio:
		m, err := miniostore.New(miniostore.Config{
			Endpoint:  sc.Endpoint,
			AccessKey: creds.AccessKey,
			SecretKey: creds.SecretKey,
			Region:    sc.Region,
		})
		if err != nil {
			return nil, err
		}
		return m, nil

	case config.DriverS3:
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		if creds.AccessKey != "" {
			ac.Credentials = aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, ""))
		}
		client := s3.NewFromConfig(ac, func(o *s3.Options) {
			o.UsePathStyle = sc.PathStyle
			if sc.Endpoint != "" {
				o.BaseEndpoint = aws.String(sc.Endpoint)
			}
		})
		return s3store.New(client), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", sc.Driver)
}
