package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/isd-drivers/driver"
	"github.com/signalsfoundry/isd-drivers/kernel"
	"github.com/signalsfoundry/isd-drivers/label"
	"github.com/signalsfoundry/isd-drivers/metakernel"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "isd.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[kernels]
mdis = "/spice/messenger/kernels/mk"
dawn = "s3://spice/dawn/mk"
s3_region = "us-west-2"

[logging]
level = "debug"
format = "json"

[tracing]
enabled = true
exporter = "otlp"
endpoint = "collector:4317"
sample_ratio = 0.25
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	want := Config{
		Kernels: Kernels{MDIS: "/spice/messenger/kernels/mk", Dawn: "s3://spice/dawn/mk", S3Region: "us-west-2"},
		Logging: Logging{Level: "debug", Format: "json"},
		Tracing: Tracing{Enabled: true, ServiceName: "isd-drivers", Exporter: "otlp", Endpoint: "collector:4317", SampleRatio: 0.25},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("Load mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Kernels.UsesS3() {
		t.Fatalf("UsesS3() = false for an s3 dawn directory")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"syntax": "[kernels\nmdis = 1",
		"ratio":  "[tracing]\nsample_ratio = 2.0",
		"format": "[logging]\nformat = \"xml\"",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ISD_MDIS_DATA", "/data/mdis")
	t.Setenv("ISD_DAWN_DATA", "")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ISD_TRACING_ENABLED", "true")
	t.Setenv("ISD_TRACING_SAMPLE_RATIO", "0.5")
	t.Setenv("ISD_TRACING_ENDPOINT", "collector:4317")

	cfg := Default()
	cfg.Kernels.Dawn = "/data/dawn"
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}
	if cfg.Kernels.MDIS != "/data/mdis" || cfg.Kernels.Dawn != "/data/dawn" {
		t.Fatalf("kernels = %+v", cfg.Kernels)
	}
	if got := cfg.LoggingConfig(); got.Level != "warn" || got.Format != "text" {
		t.Fatalf("LoggingConfig() = %+v", got)
	}
	if got := cfg.TracingConfig(); !got.Enabled || got.SampleRatio != 0.5 || got.Endpoint != "collector:4317" {
		t.Fatalf("TracingConfig() = %+v", got)
	}

	t.Setenv("ISD_TRACING_ENABLED", "maybe")
	if err := cfg.ApplyEnv(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("ApplyEnv error = %v, want ErrInvalid", err)
	}
}

func TestS3ListerOnlyWhenNeeded(t *testing.T) {
	cfg := Default()
	cfg.Kernels.MDIS = "/spice/mdis"
	l, err := cfg.S3Lister()
	if err != nil || l != nil {
		t.Fatalf("S3Lister() = %v, %v; want nil for local directories", l, err)
	}
}

type fakeS3 struct {
	s3iface.S3API
	keys []string
}

func (f *fakeS3) ListObjectsV2(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for _, k := range f.keys {
		key := k
		out.Contents = append(out.Contents, &s3.Object{Key: &key})
	}
	return out, nil
}

func TestDriverOptionsRouteListers(t *testing.T) {
	local := t.TempDir()
	if err := os.WriteFile(filepath.Join(local, "msgr_2005_v01.tm"), nil, 0o644); err != nil {
		t.Fatalf("write metakernel: %v", err)
	}
	cfg := Default()
	cfg.Kernels.MDIS = local
	cfg.Kernels.Dawn = "s3://spice/dawn/mk"
	s3l := metakernel.NewS3Lister(&fakeS3{keys: []string{"dawn/mk/dawn_2011_v03.tm"}})
	opts := cfg.DriverOptions(s3l)

	pool := kernel.NewMemoryPool(nil)
	mdis := driver.NewMdisPds3(label.New(label.Group{"START_TIME": "2005-05-18T20:24:10.515"}), pool, nil, opts...)
	got, err := mdis.Metakernel()
	if err != nil || got != filepath.Join(local, "msgr_2005_v01.tm") {
		t.Fatalf("MDIS Metakernel() = %q, %v", got, err)
	}

	dawn := driver.NewDawnFc(label.New(label.Group{"START_TIME": "2011-10-13T21:22:39.160"}), pool, nil, opts...)
	got, err = dawn.Metakernel()
	if err != nil || got != "s3://spice/dawn/mk/dawn_2011_v03.tm" {
		t.Fatalf("Dawn Metakernel() = %q, %v", got, err)
	}

	// Sessions over an s3 metakernel record it without touching the filesystem.
	if err := dawn.WithKernels(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("WithKernels error: %v", err)
	}
}
