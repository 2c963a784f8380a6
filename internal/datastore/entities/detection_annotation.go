package entities

import (
	"strings"
	"time"
)

// Annotation types for detection annotations.
const (
	AnnotationTypeAI          = "AI_GENERATED"
	AnnotationTypeUserCreated = "USER_CREATED"
	AnnotationTypeUserEdited  = "USER_EDITED"
)

// DetectionAnnotation is the older annotation model attached to a detection
// run and image rather than to an inspection. AI findings are seeded here
// when a detection record is stored.
type DetectionAnnotation struct {
	ID                string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DetectionRecordID *uint   `gorm:"index" json:"detectionRecordId,omitempty"`
	ImageRef          string  `gorm:"type:varchar(512);index" json:"imageRef"`
	TransformerID     *string `gorm:"type:varchar(255)" json:"transformerId,omitempty"`
	UserID            string  `gorm:"type:varchar(255);index" json:"userId"`

	X      int `gorm:"column:bbox_x;not null" json:"x"`
	Y      int `gorm:"column:bbox_y;not null" json:"y"`
	Width  int `gorm:"column:bbox_width;not null" json:"width"`
	Height int `gorm:"column:bbox_height;not null" json:"height"`

	Label                  string   `gorm:"type:varchar(500)" json:"label"`
	Confidence             *float64 `json:"confidence,omitempty"`
	Severity               string   `gorm:"type:varchar(50)" json:"severity,omitempty"`
	AnnotationType         string   `gorm:"type:varchar(20)" json:"annotationType"`
	Action                 string   `gorm:"type:varchar(50)" json:"action"`
	IsAI                   bool     `gorm:"column:is_ai;not null" json:"isAI"`
	Notes                  string   `gorm:"type:text" json:"notes,omitempty"`
	OriginalDetectionIndex *int     `json:"originalDetectionIndex,omitempty"`

	LastModified        time.Time `json:"lastModified"`
	ModificationTypes   string    `gorm:"type:text" json:"-"` // comma-joined
	ModificationDetails string    `gorm:"type:text" json:"modificationDetails,omitempty"`

	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	IsDeleted bool       `gorm:"not null" json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// TableName returns the table name for GORM.
func (DetectionAnnotation) TableName() string {
	return "detection_annotations"
}

// ModificationTypeList splits the stored modification types.
func (a *DetectionAnnotation) ModificationTypeList() []string {
	if a.ModificationTypes == "" {
		return []string{}
	}
	return strings.Split(a.ModificationTypes, ",")
}
