package entities

import "time"

// FeedbackLog compares what the model predicted with what the annotator
// finally accepted for one image. The three payload columns hold JSON.
type FeedbackLog struct {
	ID                       string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ImageID                  string    `gorm:"type:varchar(255);index;not null" json:"imageId"`
	ModelPredictedAnomalies  string    `gorm:"type:text" json:"-"`
	FinalAcceptedAnnotations string    `gorm:"type:text" json:"-"`
	AnnotatorMetadata        string    `gorm:"type:text" json:"-"`
	CreatedAt                time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// TableName returns the table name for GORM.
func (FeedbackLog) TableName() string {
	return "feedback_logs"
}
