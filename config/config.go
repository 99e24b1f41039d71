// Package config loads the uploads service configuration from YAML and the
// environment, validates it, and resolves store credentials.
//
// YAML example:
//
//	server:
//	  address: ":8000"
//	store:
//	  driver: "wire"              # "wire", "s3" or "minio"
//	  endpoint: "http://localhost:9000"
//	  region: "us-east-1"
//	  accessKey: "minioadmin"
//	  secretKey: "minioadmin"
//	  credentialsSecret: ""       # Secrets Manager id holding {"access_key","secret_key"}
//	  ensureBucket: true
//	upload:
//	  defaultBucket: "uploads"
//	  chunkSizeMB: 128
//	  maxParts: 10000
//	  maxBatchSize: 100
//	  presignExpiry: "24h"
//	log:
//	  level: "info"
//	  format: "text"
//
// Environment overrides (applied after the file):
//
//	UPLOADS_ADDR, UPLOADS_STORE_DRIVER, UPLOADS_STORE_ENDPOINT, UPLOADS_STORE_REGION,
//	UPLOADS_STORE_PATH_STYLE, UPLOADS_ACCESS_KEY, UPLOADS_SECRET_KEY,
//	UPLOADS_CREDENTIALS_SECRET, UPLOADS_ENSURE_BUCKET, UPLOADS_BUCKET,
//	UPLOADS_CHUNK_SIZE_MB, UPLOADS_ALIGNMENT_MB, UPLOADS_MAX_PARTS,
//	UPLOADS_MAX_BATCH_SIZE, UPLOADS_PRESIGN_EXPIRY, UPLOADS_LOG_LEVEL,
//	UPLOADS_LOG_FORMAT, UPLOADS_CONFIG (file path).
//
// The MinIO variables of earlier deployments are honoured when the matching
// UPLOADS_ variable is unset: MINIO_ENDPOINT (host:port), MINIO_SECURE,
// MINIO_ACCESS_KEY, MINIO_SECRET_KEY, MINIO_BUCKET, CHUNK_SIZE_MB, MAX_PARTS,
// PRESIGN_EXPIRY_HOURS, HOST and PORT.
package config

import (
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

// Store drivers.
const (
	DriverWire  = "wire"
	DriverS3    = "s3"
	DriverMinio = "minio"
)

// Config holds runtime configuration for the uploads service.
// It is read-only once the service has started.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Upload UploadConfig `yaml:"upload"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StoreConfig selects and connects the object store backend.
type StoreConfig struct {
	Driver    string `yaml:"driver"`
	Endpoint  string `yaml:"endpoint"` // absolute URL; optional for the s3 driver
	Region    string `yaml:"region"`
	PathStyle bool   `yaml:"pathStyle"`

	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`

	// CredentialsSecret names a Secrets Manager secret holding the key pair.
	// It takes precedence over AccessKey and SecretKey.
	CredentialsSecret string `yaml:"credentialsSecret"`

	EnsureBucket bool `yaml:"ensureBucket"`
}

// UploadConfig holds the orchestrator settings.
type UploadConfig struct {
	DefaultBucket string        `yaml:"defaultBucket"`
	ChunkSizeMB   int64         `yaml:"chunkSizeMB"`
	AlignmentMB   int64         `yaml:"alignmentMB"`
	MaxParts      int           `yaml:"maxParts"`
	MaxBatchSize  int           `yaml:"maxBatchSize"`
	PresignExpiry time.Duration `yaml:"presignExpiry"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn" or "error"
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns a Config for a local MinIO on port 9000 with its stock
// minioadmin credentials.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8000",
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:       DriverWire,
			Endpoint:     "http://localhost:9000",
			Region:       "us-east-1",
			AccessKey:    "minioadmin",
			SecretKey:    "minioadmin",
			PathStyle:    true,
			EnsureBucket: true,
		},
		Upload: UploadConfig{
			DefaultBucket: uploadtypes.DefaultBucket,
			ChunkSizeMB:   uploadtypes.DefaultPreferredChunkSize / uploadtypes.MiB,
			AlignmentMB:   uploadtypes.DefaultAlignment / uploadtypes.MiB,
			MaxParts:      uploadtypes.DefaultMaxParts,
			MaxBatchSize:  uploadtypes.DefaultMaxBatchSize,
			PresignExpiry: uploadtypes.DefaultPresignExpiry,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// OrchestratorOptions translates the upload settings into orchestrator options.
func (c Config) OrchestratorOptions() []uploadtypes.Option {
	return []uploadtypes.Option{
		uploads.WithDefaultBucket(c.Upload.DefaultBucket),
		uploads.WithPreferredChunkSize(c.Upload.ChunkSizeMB * uploadtypes.MiB),
		uploads.WithAlignment(c.Upload.AlignmentMB * uploadtypes.MiB),
		uploads.WithMaxParts(c.Upload.MaxParts),
		uploads.WithMaxBatchSize(c.Upload.MaxBatchSize),
		uploads.WithPresignExpiry(c.Upload.PresignExpiry),
	}
}
