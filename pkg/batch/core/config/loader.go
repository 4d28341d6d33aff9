package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/querymetrics/pkg/batch/support/util/exception"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

const moduleName = "config"

// envPrefix is prepended to every environment override, e.g. QUERYMETRICS_HARVEST_MARKER_BUCKET.
const envPrefix = "QUERYMETRICS_"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string              `name:"envFilePath" optional:"true"`
	Expander       EnvironmentExpander `optional:"true"`
}

// loadConfig builds a Config from defaults, the .env file, the YAML document
// (with ${VAR} placeholders expanded) and finally environment overrides.
// The .env file is loaded first so its values are visible to placeholder expansion.
func loadConfig(envFilePath string, raw EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	cfg := NewConfig()

	if len(raw) > 0 {
		expanded, err := expander.Expand(raw)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
		}
		// yaml.v3 only overwrites keys present in the document, so defaults survive.
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to unmarshal config", err, false, false)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(&cfg.QueryMetrics).Elem(), envPrefix); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	cfg.EmbeddedConfig = raw
	return cfg, nil
}

// LoadConfig loads configuration without Fx. The returned config is not validated.
func LoadConfig(envFilePath string, raw EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, raw, nil)
}

// NewConfigProvider is an Fx provider that loads, validates and provides *Config.
// It also applies the configured logging settings to the global logger.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.QueryMetrics.System.Logging
	logger.Configure(logger.Options{
		Level:      logCfg.Level,
		Format:     logCfg.Format,
		FilePath:   logCfg.File.Path,
		MaxSizeMB:  logCfg.File.MaxSizeMB,
		MaxBackups: logCfg.File.MaxBackups,
		MaxAgeDays: logCfg.File.MaxAgeDays,
		Compress:   logCfg.File.Compress,
	})
	logger.Debugf("Log level set to: %s", logCfg.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadStructFromEnv recursively overrides struct fields from environment variables.
// The variable name is the upper-cased prefix plus the field's yaml tag; nested
// structs extend the prefix with "_". Map fields are left to the YAML document.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField converts value to the field's kind and assigns it.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
