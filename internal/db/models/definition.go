package models

import "time"

// Choice is one allowed value of a choice-typed setting.
type Choice struct {
	Value any    `json:"value"           toml:"value"`
	Label string `json:"label,omitempty" toml:"label"`
}

// SettingDefinition is the registry entry for one setting.
// It declares the type, the default and the metadata of the setting;
// concrete values live in SettingValue rows owned by the definition.
type SettingDefinition struct {
	// ID is the unique identifier for the definition.
	ID uint64 `gorm:"primaryKey"`
	// Key is the unique key used to address the setting in code (e.g., "feature.jobs").
	Key string `gorm:"uniqueIndex;size:120;not null" validate:"required,max=120,settingkey"`
	// CategoryID references the optional category of the definition.
	CategoryID *uint64 `gorm:"index"`
	// Category is the associated category; deleting a referenced category is refused.
	Category *SettingCategory `gorm:"foreignKey:CategoryID;references:ID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE"`
	// Type is the declared value type.
	Type SettingType `gorm:"type:varchar(15);not null" validate:"required,settingtype"`
	// Title is the human-readable name of the setting.
	Title string `gorm:"size:200" validate:"max=200"`
	// Description explains what the setting controls.
	Description string `gorm:"type:text"`
	// Default is used when neither a user nor a global value is stored.
	Default JSON
	// Choices lists the allowed values when Type is TypeChoice.
	Choices Choices
	// Required marks settings a client is expected to provide.
	Required bool `gorm:"not null"`
	// Enabled switches the setting off for everybody when false.
	Enabled bool `gorm:"not null"`
	// Editable false pins stored values to Default.
	Editable bool `gorm:"not null"`
	// Frontend marks the setting as part of the publicly cacheable frontend subset.
	Frontend bool `gorm:"not null;index"`
	// CreatedAt is the timestamp when the definition was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the definition was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the SettingDefinition model.
func (SettingDefinition) TableName() string {
	return "setting_definitions"
}

// NewDefinition returns a definition carrying the same flag defaults a
// freshly seeded definition gets: enabled and editable.
func NewDefinition(key string, typ SettingType) *SettingDefinition {
	return &SettingDefinition{
		Key:      key,
		Type:     typ,
		Title:    key,
		Enabled:  true,
		Editable: true,
	}
}

// CategoryLabel returns the category code, falling back to its title.
func (d *SettingDefinition) CategoryLabel() string {
	if d.Category == nil {
		return ""
	}

	if d.Category.Code != "" {
		return d.Category.Code
	}

	return d.Category.Title
}
