package config

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "UPLOADS_CONFIG"

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads configuration from path on the local disk. When path is empty,
// UPLOADS_CONFIG is consulted and then ./config.yaml; a missing file yields
// Default(). Environment overrides are applied last.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err != nil {
			return ApplyEnv(Default(), os.LookupEnv)
		}
		path = "config.yaml"
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	return LoadFS(billy.NewOSFS(filepath.Dir(abs)), filepath.Base(abs), os.LookupEnv)
}

// LoadFS reads configuration from path on fsys and applies overrides from lookup.
// A missing file yields Default() with overrides applied.
func LoadFS(fsys fs.Filesystem, path string, lookup LookupFunc) (Config, error) {
	cfg := Default()

	if _, err := fsys.Stat(path); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return ApplyEnv(cfg, lookup)
		}
		return Config{}, fmt.Errorf("stat config: %w", err)
	}

	f, err := fsys.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return ApplyEnv(cfg, lookup)
}

// ApplyEnv overlays environment variables on cfg.
func ApplyEnv(cfg Config, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return cfg, nil
	}
	e := envReader{lookup: lookup}

	if !e.str(&cfg.Server.Address, "UPLOADS_ADDR") {
		e.hostPort(&cfg.Server.Address)
	}
	e.duration(&cfg.Server.ShutdownTimeout, "UPLOADS_SHUTDOWN_TIMEOUT")

	e.str(&cfg.Store.Driver, "UPLOADS_STORE_DRIVER")
	if !e.str(&cfg.Store.Endpoint, "UPLOADS_STORE_ENDPOINT") {
		e.minioEndpoint(&cfg.Store.Endpoint)
	}
	e.str(&cfg.Store.Region, "UPLOADS_STORE_REGION")
	e.boolean(&cfg.Store.PathStyle, "UPLOADS_STORE_PATH_STYLE")
	e.str(&cfg.Store.AccessKey, "UPLOADS_ACCESS_KEY", "MINIO_ACCESS_KEY")
	e.str(&cfg.Store.SecretKey, "UPLOADS_SECRET_KEY", "MINIO_SECRET_KEY")
	e.str(&cfg.Store.CredentialsSecret, "UPLOADS_CREDENTIALS_SECRET")
	e.boolean(&cfg.Store.EnsureBucket, "UPLOADS_ENSURE_BUCKET")

	e.str(&cfg.Upload.DefaultBucket, "UPLOADS_BUCKET", "MINIO_BUCKET")
	e.int64(&cfg.Upload.ChunkSizeMB, "UPLOADS_CHUNK_SIZE_MB", "CHUNK_SIZE_MB")
	e.int64(&cfg.Upload.AlignmentMB, "UPLOADS_ALIGNMENT_MB")
	e.integer(&cfg.Upload.MaxParts, "UPLOADS_MAX_PARTS", "MAX_PARTS")
	e.integer(&cfg.Upload.MaxBatchSize, "UPLOADS_MAX_BATCH_SIZE")
	if !e.duration(&cfg.Upload.PresignExpiry, "UPLOADS_PRESIGN_EXPIRY") {
		var hours int64
		if e.int64(&hours, "PRESIGN_EXPIRY_HOURS") {
			cfg.Upload.PresignExpiry = time.Duration(hours) * time.Hour
		}
	}

	e.str(&cfg.Log.Level, "UPLOADS_LOG_LEVEL")
	e.str(&cfg.Log.Format, "UPLOADS_LOG_FORMAT")

	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// envReader applies the first set variable of each key list and keeps the
// first parse failure.
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) first(keys ...string) (string, string, bool) {
	for _, k := range keys {
		if v, ok := e.lookup(k); ok && strings.TrimSpace(v) != "" {
			return k, strings.TrimSpace(v), true
		}
	}
	return "", "", false
}

func (e *envReader) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (e *envReader) str(dst *string, keys ...string) bool {
	_, v, ok := e.first(keys...)
	if ok {
		*dst = v
	}
	return ok
}

func (e *envReader) boolean(dst *bool, keys ...string) bool {
	k, v, ok := e.first(keys...)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(k, v, err)
		return false
	}
	*dst = b
	return true
}

func (e *envReader) integer(dst *int, keys ...string) bool {
	k, v, ok := e.first(keys...)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(k, v, err)
		return false
	}
	*dst = n
	return true
}

func (e *envReader) int64(dst *int64, keys ...string) bool {
	k, v, ok := e.first(keys...)
	if !ok {
		return false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.fail(k, v, err)
		return false
	}
	*dst = n
	return true
}

func (e *envReader) duration(dst *time.Duration, keys ...string) bool {
	k, v, ok := e.first(keys...)
	if !ok {
		return false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v, err)
		return false
	}
	*dst = d
	return true
}

// hostPort builds a listen address from HOST and PORT, either of which may be unset.
func (e *envReader) hostPort(dst *string) {
	_, host, hostSet := e.first("HOST")
	_, port, portSet := e.first("PORT")
	if !hostSet && !portSet {
		return
	}
	if !portSet {
		_, port, _ = net.SplitHostPort(*dst)
	}
	*dst = net.JoinHostPort(host, port)
}

// minioEndpoint builds an endpoint URL from MINIO_ENDPOINT (host:port) and MINIO_SECURE.
func (e *envReader) minioEndpoint(dst *string) {
	_, host, ok := e.first("MINIO_ENDPOINT")
	if !ok {
		return
	}
	if strings.Contains(host, "://") {
		*dst = host
		return
	}
	secure := false
	e.boolean(&secure, "MINIO_SECURE")
	scheme := "http"
	if secure {
		scheme = "https"
	}
	*dst = scheme + "://" + host
}
