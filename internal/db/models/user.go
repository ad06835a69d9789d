package models

import "time"

// User is the identity user scoped setting values belong to.
// Authentication is handled by the serving layer; this table only anchors
// per-user overrides so they are removed together with the user.
type User struct {
	// ID is the unique identifier for the user, as issued by the identity provider.
	ID uint64 `gorm:"primaryKey;autoIncrement:false"`
	// Username is the optional login name of the user.
	Username string `gorm:"size:100"`
	// Active indicates whether the user account is active.
	Active bool `gorm:"not null"`
	// Staff users may change global values.
	Staff bool `gorm:"not null"`
	// Superuser users may see and change non-editable settings.
	Superuser bool `gorm:"not null"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}
