// Package config holds the querymetrics configuration tree and the loader that
// assembles it from defaults, YAML, .env files and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
)

// EmbeddedConfig holds the raw YAML configuration, usually embedded in the binary
// or read from the --config file by the entrypoint.
type EmbeddedConfig []byte

// FileLoggingConfig enables rotated file output for the logger.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string            `yaml:"format"`
	File   FileLoggingConfig `yaml:"file"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is used to interpret schedule specs (e.g., "UTC", "Asia/Tokyo").
	// Billing periods are always derived in UTC.
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// ObjectRef names a single blob in a configured storage connection.
type ObjectRef struct {
	StorageRef string `yaml:"storage_ref"`
	Bucket     string `yaml:"bucket"`
	Key        string `yaml:"key"`
}

// ResultConfig names the destination of the partitioned batch files.
type ResultConfig struct {
	StorageRef string `yaml:"storage_ref"`
	Bucket     string `yaml:"bucket"`
	// Prefix is the root of the partition tree, "data" by default.
	Prefix string `yaml:"prefix"`
}

// ScheduleConfig holds cron specs used by the schedule command.
type ScheduleConfig struct {
	Harvest string `yaml:"harvest"`
	Retry   string `yaml:"retry"`
}

// HarvestConfig holds the cursor locations and batch output settings.
type HarvestConfig struct {
	Marker ObjectRef    `yaml:"marker"`
	Retry  ObjectRef    `yaml:"retry"`
	Result ResultConfig `yaml:"result"`
	// Format is the batch file format, "csv" or "parquet".
	Format string `yaml:"format"`
	// BatchSize is the number of ids fetched per detail request. Capped at 50 by the query service.
	BatchSize int            `yaml:"batch_size"`
	Schedule  ScheduleConfig `yaml:"schedule"`
}

// AthenaConfig holds query service client settings.
type AthenaConfig struct {
	Region    string `yaml:"region"`
	WorkGroup string `yaml:"workgroup"`
	// Endpoint overrides the service endpoint, mainly for local emulators.
	Endpoint string `yaml:"endpoint"`
	// MaxResults is the listing page size, 1..50. Zero leaves it to the service.
	MaxResults int `yaml:"max_results"`
}

// MetricsConfig controls the Prometheus recorder.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// PushGatewayURL, when set, receives the run's metrics once the run ends.
	PushGatewayURL string `yaml:"push_gateway_url"`
	JobName        string `yaml:"job_name"`
}

// TracingConfig controls the OpenTelemetry tracer.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// HistoryConfig controls persistence of run summaries.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// DBRef names an entry under the database section.
	DBRef string `yaml:"db_ref"`
}

// QueryMetricsConfig holds everything under the "querymetrics" top-level key.
type QueryMetricsConfig struct {
	System  SystemConfig  `yaml:"system"`
	Harvest HarvestConfig `yaml:"harvest"`
	Athena  AthenaConfig  `yaml:"athena"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	History HistoryConfig `yaml:"history"`
	// Storage holds named storage connection settings, decoded per provider.
	Storage map[string]interface{} `yaml:"storage"`
	// Database holds named database connection settings for run history.
	Database map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	QueryMetrics   QueryMetricsConfig `yaml:"querymetrics"`
	EmbeddedConfig EmbeddedConfig     `yaml:"-"`
}

// Supported batch formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// DefaultStorageRef is the storage connection used when a harvest object omits storage_ref.
const DefaultStorageRef = "default"

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		QueryMetrics: QueryMetricsConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging: LoggingConfig{
					Level:  "INFO",
					Format: "console",
					File:   FileLoggingConfig{MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
				},
			},
			Harvest: HarvestConfig{
				Marker:    ObjectRef{StorageRef: DefaultStorageRef},
				Retry:     ObjectRef{StorageRef: DefaultStorageRef},
				Result:    ResultConfig{StorageRef: DefaultStorageRef, Prefix: "data"},
				Format:    FormatCSV,
				BatchSize: 50,
				Schedule:  ScheduleConfig{Harvest: "@every 15m", Retry: "@hourly"},
			},
			Metrics:  MetricsConfig{JobName: "querymetrics"},
			Tracing:  TracingConfig{ServiceName: "querymetrics"},
			History:  HistoryConfig{DBRef: "history"},
			Storage:  map[string]interface{}{},
			Database: map[string]interface{}{},
		},
	}
}

// Validate reports missing cursor and destination settings as a configuration error.
func (c *Config) Validate() error {
	h := c.QueryMetrics.Harvest
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("harvest.marker.bucket", h.Marker.Bucket)
	check("harvest.marker.key", h.Marker.Key)
	check("harvest.retry.bucket", h.Retry.Bucket)
	check("harvest.retry.key", h.Retry.Key)
	check("harvest.result.bucket", h.Result.Bucket)

	if len(missing) > 0 {
		return exception.NewBatchError(moduleName,
			fmt.Sprintf("missing required settings: %s", strings.Join(missing, ", ")),
			exception.ErrConfiguration, false, false)
	}

	switch strings.ToLower(h.Format) {
	case FormatCSV, FormatParquet:
	default:
		return exception.NewBatchError(moduleName,
			fmt.Sprintf("unsupported harvest.format '%s'", h.Format),
			exception.ErrConfiguration, false, false)
	}
	if h.BatchSize <= 0 || h.BatchSize > 50 {
		return exception.NewBatchError(moduleName,
			fmt.Sprintf("harvest.batch_size must be between 1 and 50, got %d", h.BatchSize),
			exception.ErrConfiguration, false, false)
	}
	if n := c.QueryMetrics.Athena.MaxResults; n < 0 || n > 50 {
		return exception.NewBatchError(moduleName,
			fmt.Sprintf("athena.max_results must be between 0 and 50, got %d", n),
			exception.ErrConfiguration, false, false)
	}
	return nil
}
