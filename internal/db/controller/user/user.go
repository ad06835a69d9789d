// Package user provides lookups and on-demand creation of the users
// that own per-user setting values.
package user

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/confetti-go/confetti/internal/db/models"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserIDZero is returned when a user without an ID is passed.
	ErrUserIDZero = errors.New("user id cannot be zero")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a user by its ID.
func Get(db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User

	result := db.First(&u, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, result.Error
	}

	return &u, nil
}

// Ensure inserts the user or refreshes its flags when it already exists.
// The username is only overwritten when a new one is given.
func Ensure(db *gorm.DB, u *models.User) error {
	if db == nil {
		return ErrDBNil
	}

	if u.ID == 0 {
		return ErrUserIDZero
	}

	columns := []string{"active", "staff", "superuser", "updated_at"}
	if u.Username != "" {
		columns = append(columns, "username")
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(u).Error
}

// Delete removes a user. Its setting values have to be removed by the caller
// so that their cache entries are invalidated.
func Delete(db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
