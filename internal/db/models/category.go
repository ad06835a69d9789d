package models

import "time"

// SettingCategory groups setting definitions under a common label.
// A category can not be deleted while definitions still reference it.
type SettingCategory struct {
	// ID is the unique identifier for the category.
	ID uint64 `gorm:"primaryKey"`
	// Code is the unique slug of the category (e.g., "scheduler").
	Code string `gorm:"uniqueIndex;size:64;not null" validate:"required,max=64"`
	// Title is the human-readable name of the category.
	Title string `gorm:"size:128;not null" validate:"max=128"`
	// CreatedAt is the timestamp when the category was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the category was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the SettingCategory model.
func (SettingCategory) TableName() string {
	return "setting_categories"
}
