package mqtt

import (
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/detection"
)

// DetectionEvent is the JSON payload published for each detection run.
type DetectionEvent struct {
	Event         string                `json:"event"`
	RecordID      uint                  `json:"recordId,omitempty"`
	InspectionID  string                `json:"inspectionId,omitempty"`
	TransformerID string                `json:"transformerId,omitempty"`
	ImageURL      string                `json:"imageUrl"`
	OverlayURL    string                `json:"overlayImageUrl,omitempty"`
	Engine        string                `json:"engine"`
	Model         string                `json:"model"`
	Label         string                `json:"label"`
	Total         int                   `json:"totalDetections"`
	Critical      int                   `json:"criticalCount"`
	Warning       int                   `json:"warningCount"`
	Uncertain     int                   `json:"uncertainCount"`
	MaxConfidence *float64              `json:"maxConfidence,omitempty"`
	DetectedAt    time.Time             `json:"detectedAt"`
	Detections    []detection.Detection `json:"detections"`
}

// NewDetectionEvent builds the payload for a stored or unsaved record.
func NewDetectionEvent(rec *entities.DetectionRecord) (DetectionEvent, error) {
	dets, err := rec.Detections()
	if err != nil {
		return DetectionEvent{}, err
	}
	return DetectionEvent{
		Event:         "detection",
		RecordID:      rec.ID,
		InspectionID:  deref(rec.InspectionID),
		TransformerID: deref(rec.TransformerID),
		ImageURL:      rec.MaintenanceImageURL,
		OverlayURL:    rec.OverlayImageURL,
		Engine:        rec.EngineName,
		Model:         rec.ModelName,
		Label:         rec.OverallLabel,
		Total:         rec.TotalDetections,
		Critical:      rec.CriticalCount,
		Warning:       rec.WarningCount,
		Uncertain:     rec.UncertainCount,
		MaxConfidence: rec.MaxConfidence,
		DetectedAt:    rec.DetectedAt,
		Detections:    dets,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
