package config

import (
	"fmt"
	"os"
	"path/filepath"

	"s3preset/internal/storage"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Storage      StorageConfig `yaml:"storage"`
	Preset       Preset        `yaml:"preset"`
	LogLevel     string        `yaml:"log_level"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	Journal      string        `yaml:"journal"`
	ShowProgress bool          `yaml:"show_progress"`
}

// StorageConfig represents S3-compatible storage configuration
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	Region    string `yaml:"region"`
}

// Preset describes what to provision
type Preset struct {
	Size         int    `yaml:"size"`
	Buckets      int    `yaml:"buckets"`
	PreloadObj   int    `yaml:"preload_obj"`
	Location     string `yaml:"location"`
	Versioning   bool   `yaml:"versioning"`
	Update       bool   `yaml:"update"`
	IgnoreErrors bool   `yaml:"ignore_errors"`
	Workers      int    `yaml:"workers"`
	Out          string `yaml:"out"`
	Payload      string `yaml:"payload"`
}

// Load loads configuration from file and command line flags
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		LogLevel:     "info",
		ShowProgress: true,
		Storage: StorageConfig{
			Driver: storage.DriverMinIO,
		},
		Preset: Preset{
			Workers: 50,
			Payload: filepath.Join(os.TempDir(), "data_file"),
		},
	}

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if flags != nil {
		if err := loadFromFlags(cfg, flags); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	setString := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	setInt := func(name string, dst *int) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetInt(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetBool(name)
		}
	}

	setString("driver", &cfg.Storage.Driver)
	setString("endpoint", &cfg.Storage.Endpoint)
	setString("access-key", &cfg.Storage.AccessKey)
	setString("secret-key", &cfg.Storage.SecretKey)
	setBool("secure", &cfg.Storage.Secure)
	setString("region", &cfg.Storage.Region)

	setInt("size", &cfg.Preset.Size)
	setInt("buckets", &cfg.Preset.Buckets)
	setInt("preload_obj", &cfg.Preset.PreloadObj)
	setString("location", &cfg.Preset.Location)
	setBool("versioning", &cfg.Preset.Versioning)
	setBool("update", &cfg.Preset.Update)
	setBool("ignore-errors", &cfg.Preset.IgnoreErrors)
	setInt("workers", &cfg.Preset.Workers)
	setString("out", &cfg.Preset.Out)
	setString("payload", &cfg.Preset.Payload)

	setString("log-level", &cfg.LogLevel)
	setString("metrics-addr", &cfg.MetricsAddr)
	setString("journal", &cfg.Journal)
	setBool("show-progress", &cfg.ShowProgress)

	return err
}

func (c *Config) validate() error {
	if c.Storage.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	switch c.Storage.Driver {
	case storage.DriverMinIO, storage.DriverS3:
	default:
		return fmt.Errorf("%w: %q", storage.ErrUnknownDriver, c.Storage.Driver)
	}

	if c.Preset.Out == "" {
		return fmt.Errorf("output file is required")
	}
	if c.Preset.Buckets < 0 {
		return fmt.Errorf("buckets must not be negative")
	}
	if c.Preset.PreloadObj < 0 {
		return fmt.Errorf("preload_obj must not be negative")
	}
	if c.Preset.Size < 0 {
		return fmt.Errorf("size must not be negative")
	}
	if c.Preset.PreloadObj > 0 && c.Preset.Size == 0 {
		return fmt.Errorf("size must be positive when objects are preloaded")
	}
	if c.Preset.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Preset.Payload == "" {
		return fmt.Errorf("payload path is required")
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}

	return nil
}

// RegisterFlags defines the command line flags understood by Load
func RegisterFlags(flags *pflag.FlagSet) {
	// Storage flags
	flags.String("driver", storage.DriverMinIO, "Storage driver (minio/s3)")
	flags.String("endpoint", "", "S3 gateway address")
	flags.String("access-key", "", "S3 access key (default: from environment)")
	flags.String("secret-key", "", "S3 secret key (default: from environment)")
	flags.Bool("secure", false, "Use HTTPS for the S3 gateway")
	flags.String("region", "", "S3 signing region")

	// Preset flags
	flags.Int("size", 0, "Upload objects size in kb")
	flags.Int("buckets", 0, "Number of buckets to create")
	flags.String("out", "", "JSON file with output")
	flags.Int("preload_obj", 0, "Number of pre-loaded objects per bucket")
	flags.Bool("update", false, "Reuse buckets from the output file instead of creating new ones")
	flags.String("location", "", "Bucket location constraint")
	flags.Bool("versioning", false, "Enable versioning on created buckets")
	flags.Bool("ignore-errors", false, "Ignore preset errors")
	flags.Int("workers", 50, "Count of workers in preset (max 50)")
	flags.String("payload", filepath.Join(os.TempDir(), "data_file"), "Path of the generated payload file")

	// Runtime flags
	flags.String("log-level", "info", "Log level (debug/info/warn/error)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (disabled if empty)")
	flags.String("journal", "", "SQLite file recording every task outcome (disabled if empty)")
	flags.Bool("show-progress", true, "Show progress display on terminals")
}
