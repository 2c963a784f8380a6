// Package feedback records how annotators changed model predictions so the
// pairs can be exported as training data.
package feedback

import (
	"encoding/json"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore/entities"
)

// Modifications counts annotator actions in a final annotation set.
type Modifications struct {
	Added     int `json:"added"`
	Edited    int `json:"edited"`
	Deleted   int `json:"deleted"`
	Confirmed int `json:"confirmed"`
}

// Predictions is what the model reported for an image. Detections are kept
// as free-form objects.
type Predictions struct {
	Detections     []map[string]any `json:"detections"`
	Label          string           `json:"label,omitempty"`
	Confidence     *float64         `json:"confidence,omitempty"`
	DetectionCount *int             `json:"detectionCount,omitempty"`
}

// Accepted is the annotation set the annotator finally accepted.
type Accepted struct {
	Detections        []map[string]any `json:"detections"`
	Label             string           `json:"label,omitempty"`
	DetectionCount    *int             `json:"detectionCount,omitempty"`
	UserModifications *Modifications   `json:"userModifications,omitempty"`
}

// Entry is one feedback submission.
type Entry struct {
	ImageID                  string         `json:"image_id" validate:"required"`
	ModelPredictedAnomalies  *Predictions   `json:"model_predicted_anomalies" validate:"required"`
	FinalAcceptedAnnotations *Accepted      `json:"final_accepted_annotations" validate:"required"`
	AnnotatorMetadata        map[string]any `json:"annotator_metadata,omitempty"`
}

// Summary describes a stored entry.
type Summary struct {
	ImageID         string        `json:"image_id"`
	ModelDetections int           `json:"model_detections"`
	FinalDetections int           `json:"final_detections"`
	UserChanges     Modifications `json:"user_changes"`
}

// Record is a stored feedback log with its JSON payloads.
type Record struct {
	ID                       string          `json:"id"`
	ImageID                  string          `json:"image_id"`
	ModelPredictedAnomalies  json.RawMessage `json:"model_predicted_anomalies"`
	FinalAcceptedAnnotations json.RawMessage `json:"final_accepted_annotations"`
	AnnotatorMetadata        json.RawMessage `json:"annotator_metadata"`
	CreatedAt                time.Time       `json:"created_at"`
}

func toRecord(l *entities.FeedbackLog) Record {
	return Record{
		ID:                       l.ID,
		ImageID:                  l.ImageID,
		ModelPredictedAnomalies:  rawOrEmpty(l.ModelPredictedAnomalies),
		FinalAcceptedAnnotations: rawOrEmpty(l.FinalAcceptedAnnotations),
		AnnotatorMetadata:        rawOrEmpty(l.AnnotatorMetadata),
		CreatedAt:                l.CreatedAt.UTC(),
	}
}

func rawOrEmpty(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(s)
}
