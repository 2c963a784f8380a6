// Package serve implements the command that runs the HTTP API.
package serve

import (
	"github.com/gridsight/thermalwatch/internal/api"
	"github.com/gridsight/thermalwatch/internal/app"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Start the annotation and anomaly detection API and block until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings)
		},
	}

	cmd.Flags().String("host", "", "Listen host (overrides webserver.host)")
	cmd.Flags().String("port", "", "Listen port (overrides webserver.port)")
	_ = viper.BindPFlag("webserver.host", cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("webserver.port", cmd.Flags().Lookup("port"))

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings) error {
	ctx := cmd.Context()
	log := logger.Global().Module("main")

	a, err := app.New(ctx, settings, app.WithIntegrations(true))
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to close application", logger.Error(err))
		}
	}()

	server, err := api.New(settings,
		api.WithServices(a.Services()),
		api.WithMetrics(a.Metrics),
		api.WithLogger(logger.Global().Module("api")))
	if err != nil {
		return err
	}

	log.Info("thermalwatch starting",
		logger.String("version", settings.Version),
		logger.String("database", a.Store.Dialect()),
		logger.Int("engines", len(a.Registry.Names())))
	return server.StartWithGracefulShutdown(ctx)
}
