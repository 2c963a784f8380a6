package entities

import (
	"encoding/json"
	"time"

	"github.com/gridsight/thermalwatch/internal/detection"
)

// DetectionRecord is the persisted outcome of one detection run. Only the
// feedback fields and counts change after creation.
type DetectionRecord struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	InspectionID  *string `gorm:"type:varchar(64);index" json:"inspectionId,omitempty"`
	TransformerID *string `gorm:"type:varchar(64);index" json:"transformerId,omitempty"`

	BaselineImageURL    string `gorm:"type:text" json:"baselineImageUrl,omitempty"`
	MaintenanceImageURL string `gorm:"type:text;not null" json:"maintenanceImageUrl"`

	EngineName    string `gorm:"type:varchar(64);not null" json:"engineName"`
	EngineVersion string `gorm:"type:varchar(32)" json:"engineVersion"`
	ModelName     string `gorm:"type:varchar(128)" json:"modelName"`

	OverallLabel     string `gorm:"type:varchar(128)" json:"overallLabel"`
	OverlayImageURL  string `gorm:"type:text" json:"overlayImageUrl,omitempty"`
	FilteredImageURL string `gorm:"type:text" json:"filteredImageUrl,omitempty"`
	MaskImageURL     string `gorm:"type:text" json:"maskImageUrl,omitempty"`
	DetectionsJSON   string `gorm:"column:detections_json;type:text" json:"-"`

	TotalDetections int      `gorm:"not null" json:"totalDetections"`
	CriticalCount   int      `gorm:"not null" json:"criticalCount"`
	WarningCount    int      `gorm:"not null" json:"warningCount"`
	UncertainCount  int      `gorm:"not null" json:"uncertainCount"`
	MaxConfidence   *float64 `json:"maxConfidence,omitempty"`
	MinConfidence   *float64 `json:"minConfidence,omitempty"`
	AvgConfidence   *float64 `json:"avgConfidence,omitempty"`

	ProcessingTimeMs int64     `json:"processingTimeMs"`
	DetectedAt       time.Time `gorm:"index;not null" json:"detectedAt"`
	CreatedAt        time.Time `json:"createdAt"`

	FeedbackProvided   bool       `gorm:"not null" json:"feedbackProvided"`
	FeedbackCorrect    *bool      `json:"feedbackCorrect,omitempty"`
	FeedbackNotes      string     `gorm:"type:text" json:"feedbackNotes,omitempty"`
	FeedbackProvidedAt *time.Time `json:"feedbackProvidedAt,omitempty"`
}

// TableName returns the table name for GORM.
func (DetectionRecord) TableName() string {
	return "detection_records"
}

// SetDetections stores the ordered detection list.
func (r *DetectionRecord) SetDetections(dets []detection.Detection) error {
	if dets == nil {
		dets = []detection.Detection{}
	}
	data, err := json.Marshal(dets)
	if err != nil {
		return err
	}
	r.DetectionsJSON = string(data)
	return nil
}

// Detections decodes the stored detection list. An empty column yields an
// empty list.
func (r *DetectionRecord) Detections() ([]detection.Detection, error) {
	if r.DetectionsJSON == "" {
		return []detection.Detection{}, nil
	}
	var dets []detection.Detection
	if err := json.Unmarshal([]byte(r.DetectionsJSON), &dets); err != nil {
		return nil, err
	}
	return dets, nil
}

// ApplySummary copies run statistics onto the record.
func (r *DetectionRecord) ApplySummary(s detection.Summary) {
	r.TotalDetections = s.Total
	r.CriticalCount = s.CriticalCount
	r.WarningCount = s.WarningCount
	r.UncertainCount = s.UncertainCount
	r.MaxConfidence = s.MaxConfidence
	r.MinConfidence = s.MinConfidence
	r.AvgConfidence = s.AvgConfidence
}
