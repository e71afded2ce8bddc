// Package config provides configuration loading and validation for the
// probfilter CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidFPP           = errors.New("false-positive rate must be in (0,1)")
	ErrInvalidCapacity      = errors.New("expected item count must be positive")
	ErrInvalidVariant       = errors.New("unknown filter variant")
	ErrInvalidBitsPerBucket = errors.New("bitsPerBucket must be in (0,64) for stable filters")
	ErrFilePathRequired     = errors.New("offHeap requires a file path")
)

// Default configuration values.
const (
	defaultVariant       = "classic"
	defaultFPP           = 0.01
	defaultCapacity      = 10_000
	defaultBitsPerBucket = 4
	defaultPRatio        = 0.9
	defaultLogLevel      = "info"
	defaultLogFormat     = "json"
)

// Config holds all configuration for the probfilter CLI.
type Config struct {
	Filter  FilterConfig  `mapstructure:"filter"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FilterConfig holds the filter builder parameters.
type FilterConfig struct {
	Variant       string  `mapstructure:"variant"`
	FPP           float64 `mapstructure:"fpp"`
	Capacity      uint64  `mapstructure:"capacity"`
	BitsPerBucket uint    `mapstructure:"bits_per_bucket"`
	PRatio        float64 `mapstructure:"pratio"`
	OffHeap       bool    `mapstructure:"off_heap"`
	FilePath      string  `mapstructure:"file_path"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("probfilter")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/probfilter")
	}

	viperCfg.SetEnvPrefix("PROBFILTER")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viperCfg.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config

	if err := viperCfg.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("filter.variant", defaultVariant)
	viperCfg.SetDefault("filter.fpp", defaultFPP)
	viperCfg.SetDefault("filter.capacity", defaultCapacity)
	viperCfg.SetDefault("filter.bits_per_bucket", defaultBitsPerBucket)
	viperCfg.SetDefault("filter.pratio", defaultPRatio)
	viperCfg.SetDefault("filter.off_heap", false)
	viperCfg.SetDefault("filter.file_path", "")

	viperCfg.SetDefault("logging.level", defaultLogLevel)
	viperCfg.SetDefault("logging.format", defaultLogFormat)
}

func validate(cfg *Config) error {
	if cfg.Filter.FPP <= 0 || cfg.Filter.FPP >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidFPP, cfg.Filter.FPP)
	}

	if cfg.Filter.Capacity == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.Filter.Capacity)
	}

	switch cfg.Filter.Variant {
	case "classic", "partitioned", "stable", "cuckoo", "scalable":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVariant, cfg.Filter.Variant)
	}

	if cfg.Filter.Variant == "stable" && (cfg.Filter.BitsPerBucket == 0 || cfg.Filter.BitsPerBucket >= 64) {
		return fmt.Errorf("%w: %d", ErrInvalidBitsPerBucket, cfg.Filter.BitsPerBucket)
	}

	if cfg.Filter.OffHeap && cfg.Filter.FilePath == "" {
		return ErrFilePathRequired
	}

	return nil
}
