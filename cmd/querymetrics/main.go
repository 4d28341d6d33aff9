package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tigerroll/querymetrics/internal/app"
	config "github.com/tigerroll/querymetrics/pkg/batch/core/config"
	"github.com/tigerroll/querymetrics/pkg/batch/core/metrics"
	"github.com/tigerroll/querymetrics/pkg/batch/support/util/logger"
)

// embeddedConfig is used when --config is not given.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// logLevelEnv overrides querymetrics.system.logging.level through the config loader.
const logLevelEnv = "QUERYMETRICS_SYSTEM_LOGGING_LEVEL"

type rootFlags struct {
	configPath  string
	envFilePath string
	logLevel    string
}

// options resolves the flags into app.Options for mode.
func (f *rootFlags) options(mode string) (app.Options, error) {
	raw := embeddedConfig
	if f.configPath != "" {
		b, err := os.ReadFile(f.configPath)
		if err != nil {
			return app.Options{}, fmt.Errorf("read config %s: %w", f.configPath, err)
		}
		raw = b
	}
	if f.logLevel != "" {
		if _, ok := logger.ParseLevel(f.logLevel); !ok {
			return app.Options{}, fmt.Errorf("unknown log level %q", f.logLevel)
		}
		if err := os.Setenv(logLevelEnv, f.logLevel); err != nil {
			return app.Options{}, err
		}
		logger.SetLogLevel(f.logLevel)
	}
	return app.Options{
		Mode:              mode,
		EnvFilePath:       f.envFilePath,
		EmbeddedConfig:    config.EmbeddedConfig(raw),
		DBProviderOptions: app.DBProviderOptions(os.Getenv("DB_ADAPTORS")),
	}, nil
}

func newRootCmd(ctx context.Context) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "querymetrics",
		Short:         "Harvest Athena query execution metrics into partitioned batch files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultEnvFile := os.Getenv("ENV_FILE_PATH")
	if defaultEnvFile == "" {
		defaultEnvFile = ".env"
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to the YAML configuration (defaults to the embedded one)")
	root.PersistentFlags().StringVar(&flags.envFilePath, "env-file", defaultEnvFile, "Path to a .env file loaded before the configuration")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(
		newModeCmd(ctx, flags, metrics.ModeHarvest, "Process query executions newer than the stored marker"),
		newModeCmd(ctx, flags, metrics.ModeRetry, "Re-check queued and running executions from the retry file"),
		newModeCmd(ctx, flags, app.ModeSchedule, "Run harvest and retry on their cron schedules until interrupted"),
		newHistoryCmd(ctx, flags),
	)
	return root
}

// exitError carries a non-zero exit code out of cobra.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newModeCmd(ctx context.Context, flags *rootFlags, mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   mode,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.options(mode)
			if err != nil {
				return err
			}
			if code := app.RunApplication(ctx, opts); code != 0 {
				return exitError{code: code}
			}
			return nil
		},
	}
}

func newHistoryCmd(ctx context.Context, flags *rootFlags) *cobra.Command {
	var (
		mode  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run-history store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.options("history")
			if err != nil {
				return err
			}
			return app.PrintHistory(ctx, cmd.OutOrStdout(), opts, mode, limit)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Only show runs of this mode (harvest or retry)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the run...", sig)
		cancel()
	}()

	if err := newRootCmd(ctx).Execute(); err != nil {
		code := 1
		if ee, ok := err.(exitError); ok {
			code = ee.code
		} else {
			logger.Errorf("%v", err)
		}
		cancel()
		os.Exit(code)
	}
}
