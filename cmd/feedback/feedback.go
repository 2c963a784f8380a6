// Package feedback implements the feedback log commands.
package feedback

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gridsight/thermalwatch/internal/app"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/errors"
	fb "github.com/gridsight/thermalwatch/internal/feedback"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/spf13/cobra"
)

// Command creates the feedback command group.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Work with annotator feedback logs",
	}
	cmd.AddCommand(exportCommand(settings))
	return cmd
}

func exportCommand(settings *conf.Settings) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every feedback log as JSON or CSV",
		Long:  "Export every feedback log. Without --output the export is written to stdout; with a directory a timestamped file name is used.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fb.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Global().Module("main").Warn("failed to close application", logger.Error(err))
				}
			}()

			if output == "" {
				return a.Feedback.Export(cmd.Context(), cmd.OutOrStdout(), f)
			}
			return exportToFile(cmd, a.Feedback, f, output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(fb.FormatJSON), "Export format: json or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory")

	return cmd
}

func exportToFile(cmd *cobra.Command, svc *fb.Service, format fb.Format, path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, format.Filename(time.Now()))
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) //nolint:gosec // G302: exports are meant to be shared
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create_export_file").
			Context("path", path).
			Build()
	}

	if err := svc.Export(cmd.Context(), file, format); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "close_export_file").
			Context("path", path).
			Build()
	}

	cmd.PrintErrf("feedback logs written to %s\n", path)
	return nil
}
