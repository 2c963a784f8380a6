package cmd

import (
	"time"

	"github.com/gridsight/thermalwatch/cmd/detect"
	"github.com/gridsight/thermalwatch/cmd/engines"
	"github.com/gridsight/thermalwatch/cmd/feedback"
	"github.com/gridsight/thermalwatch/cmd/serve"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/gridsight/thermalwatch/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const telemetryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs; Version and BuildDate are kept.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "thermalwatch",
		Short:         "Thermal inspection anomaly detection and annotation service",
		Version:       settings.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/thermalwatch, /etc/thermalwatch)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(
		serve.Command(settings),
		detect.Command(settings),
		engines.Command(settings),
		feedback.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			conf.SetConfigFile(configPath)
		}
		return initialize(settings)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		telemetry.Flush(telemetryFlushTimeout)
		_ = logger.Global().Flush()
	}

	return rootCmd
}

// initialize loads configuration, replaces the global logger and starts
// error telemetry.
func initialize(settings *conf.Settings) error {
	loaded, err := conf.Load()
	if err != nil {
		return err
	}
	loaded.Version = settings.Version
	loaded.BuildDate = settings.BuildDate
	if loaded.Debug {
		loaded.Logging.DefaultLevel = "debug"
		if loaded.Logging.Console != nil {
			loaded.Logging.Console.Level = "debug"
		}
	}
	*settings = *loaded

	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logger").
			Build()
	}
	logger.SetGlobal(cl)

	if err := telemetry.InitSentry(settings); err != nil {
		// telemetry must never keep the service from starting
		cl.Module("main").Warn("sentry initialization failed", logger.Error(err))
	}
	return nil
}
