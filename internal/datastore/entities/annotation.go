package entities

import (
	"strings"
	"time"
)

// Annotation actions.
const (
	ActionAdded     = "added"
	ActionEdited    = "edited"
	ActionDeleted   = "deleted"
	ActionConfirmed = "confirmed"
)

// Modification types recorded on annotations.
const (
	ModCreated      = "created"
	ModResized      = "resized"
	ModRelocated    = "relocated"
	ModLabelChanged = "label-changed"
	ModDeleted      = "deleted"
)

// MaxIDLength bounds inspection, transformer and user ids.
const MaxIDLength = 255

// Annotation is one bounding box overlay owned by an inspection. The full
// set for an inspection is replaced on every save.
type Annotation struct {
	ID            string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	InspectionID  string  `gorm:"type:varchar(255);index;not null" json:"inspectionId"`
	TransformerID *string `gorm:"type:varchar(255);index" json:"transformerId,omitempty"`
	UserID        string  `gorm:"type:varchar(255);index" json:"userId"`
	Ordinal       int     `gorm:"not null" json:"ordinal"` // 1-based position in the saved batch

	X      int `gorm:"column:bbox_x;not null" json:"x"`
	Y      int `gorm:"column:bbox_y;not null" json:"y"`
	Width  int `gorm:"column:bbox_width;not null" json:"width"`
	Height int `gorm:"column:bbox_height;not null" json:"height"`

	Label      string   `gorm:"type:varchar(500)" json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
	Severity   string   `gorm:"type:varchar(50)" json:"severity,omitempty"`
	Color      string   `gorm:"type:varchar(20)" json:"color,omitempty"`
	Action     string   `gorm:"type:varchar(50);not null" json:"action"`
	IsAI       bool     `gorm:"column:is_ai;not null" json:"isAI"`
	Notes      string   `gorm:"type:text" json:"notes,omitempty"`

	LastModified        time.Time `json:"lastModified"`
	ModificationTypes   string    `gorm:"type:text" json:"-"` // comma-joined
	ModificationDetails string    `gorm:"type:text" json:"modificationDetails,omitempty"`
	OriginalAIData      string    `gorm:"column:original_ai_data;type:text" json:"originalAIData,omitempty"`

	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	IsDeleted bool       `gorm:"not null;index" json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// TableName returns the table name for GORM.
func (Annotation) TableName() string {
	return "inspection_annotations"
}

// ModificationTypeList splits the stored modification types.
func (a *Annotation) ModificationTypeList() []string {
	if a.ModificationTypes == "" {
		return []string{}
	}
	return strings.Split(a.ModificationTypes, ",")
}
