package config

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
)

// SecretsAPI is the Secrets Manager operation used to resolve store credentials.
type SecretsAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Credentials is a resolved store key pair.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// secretDocument is the JSON layout of a credentials secret.
type secretDocument struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// ResolveCredentials returns the store key pair. When CredentialsSecret is set
// the pair is read from Secrets Manager, otherwise the static keys are used.
// Secret values are never included in errors.
func ResolveCredentials(ctx context.Context, api SecretsAPI, cfg StoreConfig) (Credentials, error) {
	if cfg.CredentialsSecret == "" {
		return Credentials{AccessKey: cfg.AccessKey, SecretKey: cfg.SecretKey}, nil
	}
	if api == nil {
		return Credentials{}, errors.NewError("resolveCredentials", errors.ErrInvalidConfig).
			WithMessage("secrets manager client is required for store.credentialsSecret")
	}

	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(cfg.CredentialsSecret),
	})
	if err != nil {
		e := errors.NewKindError("resolveCredentials", errors.KindInvalidConfig,
			fmt.Errorf("failed to read secret %s: %w", cfg.CredentialsSecret, err))
		var apiErr smithy.APIError
		if stderrors.As(err, &apiErr) {
			e.WithCode(apiErr.ErrorCode())
		}
		return Credentials{}, e
	}

	var doc secretDocument
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &doc); err != nil {
		return Credentials{}, errors.NewError("resolveCredentials", errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("secret %s is not a JSON credentials document", cfg.CredentialsSecret))
	}
	if doc.AccessKey == "" || doc.SecretKey == "" {
		return Credentials{}, errors.NewError("resolveCredentials", errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("secret %s must hold access_key and secret_key", cfg.CredentialsSecret))
	}
	return Credentials{AccessKey: doc.AccessKey, SecretKey: doc.SecretKey}, nil
}
