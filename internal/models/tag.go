package models

import "gorm.io/gorm"

// Tag category values.
const (
	CategoryNarrative = "narrative"
	CategoryTechnical = "technical"
	CategoryMeta      = "meta"
)

// Tag labels trades with a narrative, technical or meta classification.
// ParentID is a lookup relation only: deleting a parent leaves children in place.
type Tag struct {
	gorm.Model
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Category string `gorm:"not null;default:narrative" json:"category"`
	ParentID *uint  `json:"parent_id,omitempty"`
	Color    string `json:"color"`
}
