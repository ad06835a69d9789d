package models

import (
	"time"

	"gorm.io/gorm"
)

// GlobalOwner is the Owner of global values.
const GlobalOwner uint64 = 0

// SettingValue is the stored value of one definition for one scope.
// At most one row exists per (definition, scope, owner). Owner mirrors UserID
// with 0 for global rows so the unique index also covers them: SQL treats
// NULL user ids as distinct.
type SettingValue struct {
	// ID is the unique identifier for the value.
	ID uint64 `gorm:"primaryKey"`
	// DefinitionID references the owning definition.
	DefinitionID uint64 `gorm:"not null;uniqueIndex:idx_setting_value_owner,priority:1"`
	// Definition is the owning definition; its deletion removes the value.
	Definition *SettingDefinition `gorm:"foreignKey:DefinitionID;references:ID;constraint:OnDelete:CASCADE"`
	// Scope is either global or user.
	Scope Scope `gorm:"type:varchar(15);not null;uniqueIndex:idx_setting_value_owner,priority:2"`
	// Owner is the user id of a user scoped value and GlobalOwner otherwise.
	// It is maintained by BeforeSave.
	Owner uint64 `gorm:"not null;default:0;uniqueIndex:idx_setting_value_owner,priority:3"`
	// UserID is set for user scoped values and nil for global ones.
	UserID *uint64 `gorm:"index"`
	// User is the owning user of a user scoped value.
	User *User `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	// Value is the stored JSON value, NULL meaning "not set at this scope".
	Value JSON
	// CreatedAt is the timestamp when the value was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the value was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the SettingValue model.
func (SettingValue) TableName() string {
	return "setting_values"
}

// BeforeSave derives Owner from UserID.
func (v *SettingValue) BeforeSave(_ *gorm.DB) error {
	v.Owner = OwnerOf(v.UserID)

	return nil
}

// OwnerOf returns the Owner column value for userID.
func OwnerOf(userID *uint64) uint64 {
	if userID == nil {
		return GlobalOwner
	}

	return *userID
}
