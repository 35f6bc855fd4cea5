package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ostree/pkg/config"
	"github.com/Sumatoshi-tech/ostree/pkg/observability"
	"github.com/Sumatoshi-tech/ostree/pkg/version"
)

// Persistent flag names.
const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagOTLP      = "otlp-endpoint"
)

// keyedFlag pairs a command flag with the configuration key it overrides.
type keyedFlag struct {
	flag string
	key  string
}

// loadConfig reads the configuration, letting explicitly set flags win.
func loadConfig(cmd *cobra.Command, keyed ...keyedFlag) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("read --%s: %w", flagConfig, err)
	}

	keyed = append(keyed,
		keyedFlag{flag: flagLogLevel, key: "logging.level"},
		keyedFlag{flag: flagLogFormat, key: "logging.format"},
		keyedFlag{flag: flagOTLP, key: "telemetry.otlp_endpoint"},
	)

	bindings := make([]config.Binding, 0, len(keyed))
	for _, kf := range keyed {
		bindings = append(bindings, config.Binding{Key: kf.key, Flag: cmd.Flag(kf.flag)})
	}

	return config.LoadConfig(configPath, bindings...)
}

// initObservability builds the logger, tracer and meter for one command run.
// Logs go to the command's error stream; spans and metrics are pushed to the
// configured OTLP collector, if any.
func initObservability(cmd *cobra.Command, cfg *config.Config, mode observability.AppMode) (observability.Providers, error) {
	level, err := observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Logging.Environment
	obsCfg.Mode = mode
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.Format == config.LogFormatJSON
	obsCfg.LogOutput = cmd.ErrOrStderr()
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.ShutdownTimeout = cfg.Telemetry.ShutdownTimeout

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return observability.Providers{}, fmt.Errorf("init observability: %w", err)
	}

	return providers, nil
}
