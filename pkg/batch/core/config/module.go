package config

import "go.uber.org/fx"

// NewLoggingConfigProvider exposes the logging section on its own.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.QueryMetrics.System.Logging
}

// NewHarvestConfigProvider exposes the harvest section on its own.
func NewHarvestConfigProvider(cfg *Config) *HarvestConfig {
	return &cfg.QueryMetrics.Harvest
}

// Module provides *Config and its commonly injected sections.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewOsEnvironmentExpander,
			fx.As(new(EnvironmentExpander)),
		),
		NewConfigProvider,
		NewLoggingConfigProvider,
		NewHarvestConfigProvider,
	),
)
