package annotation

import (
	"time"

	"github.com/google/uuid"
	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/detection"
)

// SystemUser owns annotations created from model output.
const SystemUser = "system"

// SeedDetectionAnnotations turns the findings of a detection run into
// AI-generated detection annotations linked to the stored record.
func SeedDetectionAnnotations(recordID uint, imageRef string, dets []detection.Detection, now time.Time) []entities.DetectionAnnotation {
	now = now.UTC()
	rows := make([]entities.DetectionAnnotation, 0, len(dets))
	for i, d := range dets {
		id := recordID
		index := i
		confidence := d.Confidence
		rows = append(rows, entities.DetectionAnnotation{
			ID:                     uuid.NewString(),
			DetectionRecordID:      &id,
			ImageRef:               imageRef,
			UserID:                 SystemUser,
			X:                      d.Box.X,
			Y:                      d.Box.Y,
			Width:                  d.Box.Width,
			Height:                 d.Box.Height,
			Label:                  d.Label,
			Confidence:             &confidence,
			Severity:               string(detection.SeverityFor(confidence)),
			AnnotationType:         entities.AnnotationTypeAI,
			IsAI:                   true,
			Action:                 entities.ActionAdded,
			OriginalDetectionIndex: &index,
			LastModified:           now,
			CreatedAt:              now,
			UpdatedAt:              now,
		})
	}
	return rows
}
