package models

import "gorm.io/gorm"

// Setting is a persisted key/value pair for user preferences (theme etc.).
// It replaces ambient global state: callers go through the store.
type Setting struct {
	gorm.Model
	Key   string `gorm:"uniqueIndex;not null" json:"key"`
	Value string `json:"value"`
}
