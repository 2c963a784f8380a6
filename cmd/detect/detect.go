// Package detect implements a one-off detection run from the command line.
package detect

import (
	"github.com/gridsight/thermalwatch/internal/anomaly"
	"github.com/gridsight/thermalwatch/internal/app"
	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/detection"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output is the YAML document printed after a run.
type Output struct {
	RecordID   uint                  `yaml:"record_id,omitempty"`
	Stored     bool                  `yaml:"stored"`
	Engine     string                `yaml:"engine"`
	Model      string                `yaml:"model"`
	Label      string                `yaml:"label"`
	Summary    detection.Summary     `yaml:"summary"`
	Detections []detection.Detection `yaml:"detections"`
}

// Command creates the detect command.
func Command(settings *conf.Settings) *cobra.Command {
	var req anomaly.Request

	cmd := &cobra.Command{
		Use:   "detect <imageURL>",
		Short: "Run anomaly detection on one image",
		Long:  "Run the best available engine on a maintenance image, store the record and print the summary as YAML.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ImageURL = args[0]
			return run(cmd, settings, req)
		},
	}

	cmd.Flags().StringVar(&req.BaselineImageURL, "baseline", "", "Baseline image URL")
	cmd.Flags().StringVar(&req.InspectionID, "inspection", "", "Inspection the image belongs to")
	cmd.Flags().StringVar(&req.TransformerID, "transformer", "", "Transformer the image belongs to")

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, req anomaly.Request) error {
	a, err := app.New(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Global().Module("main").Warn("failed to close application", logger.Error(err))
		}
	}()

	resp, err := a.Anomalies.Detect(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := Output{
		Stored:     resp.Stored,
		Engine:     resp.Record.EngineName,
		Model:      resp.Record.ModelName,
		Label:      resp.Result.Label,
		Summary:    resp.Summary,
		Detections: resp.Result.Detections,
	}
	if resp.Stored {
		out.RecordID = resp.Record.ID
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
