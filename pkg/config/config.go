// Package config provides configuration loading and validation for the ostree
// command line tools.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/ostree/pkg/observability"
)

// EnvPrefix is prepended to every environment variable override, e.g.
// OSTREE_VERIFY_OPS.
const EnvPrefix = "OSTREE"

// Sentinel validation errors. An unknown log level is reported with
// observability.ErrInvalidLogLevel.
var (
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidOps         = errors.New("verify ops must be positive")
	ErrInvalidMaxValue    = errors.New("verify max value must be positive")
	ErrInvalidRemoveRatio = errors.New("verify remove ratio must be in [0, 1]")
	ErrInvalidCheckEvery  = errors.New("verify check interval must be positive")
	ErrInvalidBenchSize   = errors.New("bench size must be positive")
	ErrInvalidFormat      = errors.New("invalid report format")
	ErrInvalidShutdown    = errors.New("telemetry shutdown timeout must be positive")
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Report formats of the bench command.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

// Default configuration values.
const (
	DefaultLogLevel          = "info"
	DefaultLogFormat         = LogFormatText
	DefaultVerifyOps         = 100000
	DefaultVerifySeed        = 1
	DefaultVerifyMaxValue    = 10000
	DefaultVerifyRemoveRatio = 0.4
	DefaultVerifyCheckEvery  = 1000
	DefaultBenchSize         = 1000000
	DefaultBenchSeed         = 1
	DefaultBenchFormat       = FormatTable
	DefaultShutdownTimeout   = 5 * time.Second
)

var (
	logFormats    = []string{LogFormatText, LogFormatJSON}
	reportFormats = []string{FormatTable, FormatYAML, FormatJSON}
)

// Config holds all configuration for the ostree tools.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Verify    VerifyConfig    `mapstructure:"verify"`
	Bench     BenchConfig     `mapstructure:"bench"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Environment string `mapstructure:"environment"`
}

// TelemetryConfig controls OTLP export of spans and metrics. An empty
// endpoint disables export.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	// OTLPHeaders is a "key=value,key=value" list of gRPC metadata.
	OTLPHeaders     string        `mapstructure:"otlp_headers"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// VerifyConfig controls the randomized differential check.
type VerifyConfig struct {
	Ops         int     `mapstructure:"ops"`
	Seed        int64   `mapstructure:"seed"`
	MaxValue    int     `mapstructure:"max_value"`
	RemoveRatio float64 `mapstructure:"remove_ratio"`
	// CheckEvery is the number of operations between full oracle comparisons.
	CheckEvery int `mapstructure:"check_every"`
}

// BenchConfig controls the throughput benchmark.
type BenchConfig struct {
	N      int    `mapstructure:"n"`
	Seed   int64  `mapstructure:"seed"`
	Format string `mapstructure:"format"`
}

// Binding ties a configuration key to a command line flag. The flag value
// wins over file and environment values only when it was set explicitly.
type Binding struct {
	Key  string
	Flag *pflag.Flag
}

// LoadConfig loads configuration from file, environment variables and the
// given flag bindings.
func LoadConfig(configPath string, bindings ...Binding) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("ostree")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/ostree")
		viperCfg.AddConfigPath("/etc/ostree")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, binding := range bindings {
		if binding.Flag == nil {
			continue
		}

		bindErr := viperCfg.BindPFlag(binding.Key, binding.Flag)
		if bindErr != nil {
			return nil, fmt.Errorf("bind flag %s: %w", binding.Flag.Name, bindErr)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)
	viperCfg.SetDefault("logging.environment", "")

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.shutdown_timeout", DefaultShutdownTimeout)

	viperCfg.SetDefault("verify.ops", DefaultVerifyOps)
	viperCfg.SetDefault("verify.seed", DefaultVerifySeed)
	viperCfg.SetDefault("verify.max_value", DefaultVerifyMaxValue)
	viperCfg.SetDefault("verify.remove_ratio", DefaultVerifyRemoveRatio)
	viperCfg.SetDefault("verify.check_every", DefaultVerifyCheckEvery)

	viperCfg.SetDefault("bench.n", DefaultBenchSize)
	viperCfg.SetDefault("bench.seed", DefaultBenchSeed)
	viperCfg.SetDefault("bench.format", DefaultBenchFormat)
}

// validateConfig validates the configuration and reports every problem found.
func validateConfig(config *Config) error {
	var errs []error

	if _, err := observability.ParseLevel(config.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains(logFormats, config.Logging.Format) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format))
	}

	if config.Telemetry.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidShutdown, config.Telemetry.ShutdownTimeout))
	}

	if config.Verify.Ops <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidOps, config.Verify.Ops))
	}

	if config.Verify.MaxValue <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidMaxValue, config.Verify.MaxValue))
	}

	if config.Verify.RemoveRatio < 0 || config.Verify.RemoveRatio > 1 {
		errs = append(errs, fmt.Errorf("%w: %g", ErrInvalidRemoveRatio, config.Verify.RemoveRatio))
	}

	if config.Verify.CheckEvery <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidCheckEvery, config.Verify.CheckEvery))
	}

	if config.Bench.N <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidBenchSize, config.Bench.N))
	}

	if !slices.Contains(reportFormats, config.Bench.Format) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidFormat, config.Bench.Format))
	}

	return errors.Join(errs...)
}
