package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/planner"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

// problems collects configuration errors so they can be reported together.
type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return errors.NewError("validateConfig", errors.ErrInvalidConfig).
		WithMessage(strings.Join(p, "; "))
}

// Validate rejects inconsistent configuration before any component starts.
// All problems are reported together.
func (c Config) Validate() error {
	var p problems
	c.checkServer(&p)
	c.checkStore(&p)
	c.checkUpload(&p)
	c.checkLog(&p)
	return p.err()
}

// ValidateUpload checks only the upload policy and logging sections. Commands
// that plan offline use it so they work without a reachable or configured store.
func (c Config) ValidateUpload() error {
	var p problems
	c.checkUpload(&p)
	c.checkLog(&p)
	return p.err()
}

func (c Config) checkServer(p *problems) {
	if strings.TrimSpace(c.Server.Address) == "" {
		p.add("server.address is required")
	}
	if c.Server.ShutdownTimeout < 0 {
		p.add("server.shutdownTimeout must not be negative")
	}
}

func (c Config) checkStore(p *problems) {
	switch c.Store.Driver {
	case DriverWire, DriverMinio:
		if c.Store.Endpoint == "" {
			p.add("store.endpoint is required for the %s driver", c.Store.Driver)
		}
		if c.Store.CredentialsSecret == "" && (c.Store.AccessKey == "" || c.Store.SecretKey == "") {
			p.add("store credentials are required for the %s driver: set accessKey and secretKey or credentialsSecret", c.Store.Driver)
		}
	case DriverS3:
		if (c.Store.AccessKey == "") != (c.Store.SecretKey == "") {
			p.add("store.accessKey and store.secretKey must be set together")
		}
	default:
		p.add("store.driver %q must be one of %s, %s, %s", c.Store.Driver, DriverWire, DriverS3, DriverMinio)
	}
	if c.Store.Endpoint != "" {
		u, err := url.Parse(c.Store.Endpoint)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			p.add("store.endpoint %q must be an absolute http(s) URL", c.Store.Endpoint)
		}
	}
}

func (c Config) checkUpload(p *problems) {
	if err := validation.ValidateBucketName(c.Upload.DefaultBucket); err != nil {
		p.add("upload.defaultBucket: %v", err)
	}
	pl := planner.New()
	pl.Preferred = c.Upload.ChunkSizeMB * uploadtypes.MiB
	pl.Alignment = c.Upload.AlignmentMB * uploadtypes.MiB
	pl.MaxParts = c.Upload.MaxParts
	if err := pl.Validate(); err != nil {
		p.add("upload chunking: %v", err)
	}
	if c.Upload.MaxBatchSize < 1 {
		p.add("upload.maxBatchSize must be positive")
	}
	if err := store.CheckPresignTTL(c.Upload.PresignExpiry); err != nil {
		p.add("upload.presignExpiry: %v", err)
	}
}

func (c Config) checkLog(p *problems) {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		p.add("log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		p.add("log.format %q must be text or json", c.Log.Format)
	}
}
