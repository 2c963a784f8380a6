package feedback

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// CSVHeader is the first row of a CSV export.
var CSVHeader = []string{
	"id",
	"image_id",
	"model_predicted_anomalies",
	"final_accepted_annotations",
	"annotator_metadata",
	"created_at",
}

// ParseFormat accepts "json" and "csv" in any case; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", errors.ValidationError("invalid format, supported formats: json, csv")
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Filename returns the download file name for an export made at t.
func (f Format) Filename(t time.Time) string {
	return "feedback_logs_" + t.UTC().Format("20060102_150405") + "." + string(f)
}

type exportEnvelope struct {
	ExportDate   time.Time `json:"export_date"`
	TotalRecords int       `json:"total_records"`
	Data         []Record  `json:"data"`
}

// Export writes every stored log to w.
func (s *Service) Export(ctx context.Context, w io.Writer, format Format) error {
	rows, err := s.repo.List(ctx, 0, 0)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "export_feedback_logs").
			Build()
	}
	records := make([]Record, 0, len(rows))
	for i := range rows {
		records = append(records, toRecord(&rows[i]))
	}

	switch format {
	case FormatJSON:
		err = writeJSON(w, records, s.now().UTC())
	case FormatCSV:
		err = writeCSV(w, records)
	default:
		return errors.ValidationError("invalid format, supported formats: json, csv")
	}
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryExport).
			Context("format", string(format)).
			Build()
	}
	s.log.Info("feedback logs exported",
		logger.String("format", string(format)),
		logger.Int("records", len(records)))
	return nil
}

func writeJSON(w io.Writer, records []Record, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exportEnvelope{
		ExportDate:   now,
		TotalRecords: len(records),
		Data:         records,
	})
}

func writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			sanitizeCSVField(r.ImageID),
			string(r.ModelPredictedAnomalies),
			string(r.FinalAcceptedAnnotations),
			string(r.AnnotatorMetadata),
			r.CreatedAt.Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// sanitizeCSVField neutralises values a spreadsheet would run as a formula.
func sanitizeCSVField(field string) string {
	if field == "" {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@':
		return "'" + field
	}
	return field
}
