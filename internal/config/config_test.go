package config

import (
	"os"
	"path/filepath"
	"testing"

	"s3preset/internal/storage"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoad_Flags(t *testing.T) {
	flags := newFlags(t,
		"--endpoint", "gw:8084",
		"--out", "/tmp/preset.json",
		"--size", "1024",
		"--buckets", "10",
		"--preload_obj", "5",
		"--location", "load-1-4",
		"--versioning",
		"--ignore-errors",
		"--workers", "80",
	)

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "gw:8084", cfg.Storage.Endpoint)
	assert.Equal(t, storage.DriverMinIO, cfg.Storage.Driver)
	assert.Equal(t, Preset{
		Size:         1024,
		Buckets:      10,
		PreloadObj:   5,
		Location:     "load-1-4",
		Versioning:   true,
		IgnoreErrors: true,
		Workers:      80,
		Out:          "/tmp/preset.json",
		Payload:      filepath.Join(os.TempDir(), "data_file"),
	}, cfg.Preset)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.ShowProgress)
}

func TestLoad_FileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: s3
  endpoint: file-gw:8084
  access_key: ak
  secret_key: sk
preset:
  size: 8
  buckets: 3
  preload_obj: 2
  workers: 10
  out: file.json
log_level: debug
journal: run.db
`), 0o644))

	cfg, err := Load(path, newFlags(t, "--buckets", "7", "--update"))
	require.NoError(t, err)

	assert.Equal(t, storage.DriverS3, cfg.Storage.Driver)
	assert.Equal(t, "file-gw:8084", cfg.Storage.Endpoint)
	assert.Equal(t, "ak", cfg.Storage.AccessKey)
	assert.Equal(t, 7, cfg.Preset.Buckets)
	assert.Equal(t, 2, cfg.Preset.PreloadObj)
	assert.Equal(t, 10, cfg.Preset.Workers)
	assert.True(t, cfg.Preset.Update)
	assert.Equal(t, "file.json", cfg.Preset.Out)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "run.db", cfg.Journal)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorContains(t, err, "failed to load config file")
}

func TestLoad_Validation(t *testing.T) {
	base := []string{"--endpoint", "gw", "--out", "out.json", "--size", "1"}

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "valid", args: base},
		{name: "zero objects without size", args: []string{"--endpoint", "gw", "--out", "o.json"}},
		{name: "missing endpoint", args: []string{"--out", "o.json"}, wantErr: "endpoint is required"},
		{name: "missing out", args: []string{"--endpoint", "gw"}, wantErr: "output file is required"},
		{name: "unknown driver", args: append(base, "--driver", "gcs"), wantErr: "unknown storage driver"},
		{name: "negative buckets", args: append(base, "--buckets", "-1"), wantErr: "buckets must not be negative"},
		{name: "negative preload", args: append(base, "--preload_obj", "-1"), wantErr: "preload_obj must not be negative"},
		{name: "objects without size", args: []string{"--endpoint", "gw", "--out", "o.json", "--preload_obj", "1"}, wantErr: "size must be positive"},
		{name: "zero workers", args: append(base, "--workers", "0"), wantErr: "workers must be positive"},
		{name: "bad log level", args: append(base, "--log-level", "loud"), wantErr: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", newFlags(t, tt.args...))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
