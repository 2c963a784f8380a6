// Package engines implements the command that reports engine availability.
package engines

import (
	"github.com/gridsight/thermalwatch/internal/app"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Command creates the engines command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "Probe the configured detection engines",
		Long:  "Probe every configured detection engine and print its availability as YAML.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Global().Module("main").Warn("failed to close application", logger.Error(err))
				}
			}()

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.Anomalies.Health(cmd.Context())); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
