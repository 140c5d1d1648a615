// Package config loads driver settings from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pelletier/go-toml/v2"

	"github.com/signalsfoundry/isd-drivers/driver"
	"github.com/signalsfoundry/isd-drivers/internal/logging"
	"github.com/signalsfoundry/isd-drivers/internal/observability"
	"github.com/signalsfoundry/isd-drivers/metakernel"
)

// ErrInvalid is returned when a configuration value fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration document.
type Config struct {
	Kernels Kernels `toml:"kernels"`
	Logging Logging `toml:"logging"`
	Tracing Tracing `toml:"tracing"`
}

// Kernels locates the metakernel directory of each mission. Directories may
// be local paths or s3://bucket/prefix URLs.
type Kernels struct {
	MDIS     string `toml:"mdis"`
	Dawn     string `toml:"dawn"`
	S3Region string `toml:"s3_region"`
}

// Logging mirrors logging.Config.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Tracing mirrors observability.TracingConfig.
type Tracing struct {
	Enabled     bool    `toml:"enabled"`
	ServiceName string  `toml:"service_name"`
	Exporter    string  `toml:"exporter"`
	Endpoint    string  `toml:"endpoint"`
	SampleRatio float64 `toml:"sample_ratio"`
}

// Default returns a configuration that logs at info level and keeps tracing
// off. No metakernel directories are set.
func Default() Config {
	return Config{
		Logging: Logging{Level: "info", Format: "text"},
		Tracing: Tracing{
			ServiceName: observability.DefaultServiceName,
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ISD_MDIS_DATA, ISD_DAWN_DATA, AWS_REGION,
// LOG_LEVEL, LOG_FORMAT and the ISD_TRACING_* variables. Unset variables
// leave the field alone.
func (c *Config) ApplyEnv() error {
	setString(&c.Kernels.MDIS, "ISD_MDIS_DATA")
	setString(&c.Kernels.Dawn, "ISD_DAWN_DATA")
	setString(&c.Kernels.S3Region, "AWS_REGION")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.Tracing.ServiceName, "ISD_TRACING_SERVICE_NAME")
	setString(&c.Tracing.Exporter, "ISD_TRACING_EXPORTER")
	setString(&c.Tracing.Endpoint, "ISD_TRACING_ENDPOINT")

	if raw, ok := os.LookupEnv("ISD_TRACING_ENABLED"); ok && raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: ISD_TRACING_ENABLED=%q", ErrInvalid, raw)
		}
		c.Tracing.Enabled = v
	}
	if raw, ok := os.LookupEnv("ISD_TRACING_SAMPLE_RATIO"); ok && raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: ISD_TRACING_SAMPLE_RATIO=%q", ErrInvalid, raw)
		}
		c.Tracing.SampleRatio = v
	}
	return c.Validate()
}

// Validate checks the value ranges the rest of the module relies on.
func (c Config) Validate() error {
	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("%w: tracing sample_ratio %v outside [0, 1]", ErrInvalid, r)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging format %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}

// LoggingConfig converts the logging section.
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format}
}

// TracingConfig converts the tracing section.
func (c Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

// UsesS3 reports whether any metakernel directory is an s3:// URL.
func (k Kernels) UsesS3() bool {
	return strings.HasPrefix(k.MDIS, "s3://") || strings.HasPrefix(k.Dawn, "s3://")
}

// S3Lister builds an S3 lister when a directory needs one and returns nil
// otherwise.
func (c Config) S3Lister() (*metakernel.S3Lister, error) {
	if !c.Kernels.UsesS3() {
		return nil, nil
	}
	sess, err := session.NewSession(&aws.Config{Region: aws.String(c.Kernels.S3Region)})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return metakernel.NewS3Lister(s3.New(sess)), nil
}

// DriverOptions returns the metakernel directory options plus a lister that
// sends s3:// directories to s3l and everything else to the filesystem.
func (c Config) DriverOptions(s3l *metakernel.S3Lister) []driver.Option {
	var opts []driver.Option
	if c.Kernels.MDIS != "" {
		opts = append(opts, driver.WithMetakernelDir(driver.MissionMDIS, c.Kernels.MDIS))
	}
	if c.Kernels.Dawn != "" {
		opts = append(opts, driver.WithMetakernelDir(driver.MissionDawn, c.Kernels.Dawn))
	}
	if s3l != nil {
		opts = append(opts, driver.WithLister(metakernel.ListerFunc(func(dir string) ([]string, error) {
			return metakernel.ListerFor(dir, s3l).List(dir)
		})))
	}
	return opts
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
