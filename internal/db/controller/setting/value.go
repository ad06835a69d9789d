package setting

import (
	"errors"

	"gorm.io/gorm"

	"github.com/confetti-go/confetti/internal/db/models"
)

// GetValue retrieves the stored value of a definition for the scope.
// userID must be nil for the global scope.
func (s *Store) GetValue(definitionID uint64, scope models.Scope, userID *uint64) (*models.SettingValue, error) {
	if err := checkScope(scope, userID); err != nil {
		return nil, err
	}

	var value models.SettingValue
	if err := scoped(s.db, definitionID, scope, userID).First(&value).Error; err != nil {
		return nil, translate(err, ErrNotFound)
	}

	return &value, nil
}

// ListValues returns every stored value of a definition.
func (s *Store) ListValues(definitionID uint64) ([]models.SettingValue, error) {
	var values []models.SettingValue
	if err := s.db.Where("definition_id = ?", definitionID).Order("id").Find(&values).Error; err != nil {
		return nil, err
	}

	return values, nil
}

// ListScopedValues returns the global values of the definitions and, when
// userID is set, the values that user holds for them.
func (s *Store) ListScopedValues(definitionIDs []uint64, userID *uint64) ([]models.SettingValue, error) {
	if len(definitionIDs) == 0 {
		return nil, nil
	}

	query := s.db.Where("definition_id IN ?", definitionIDs)

	if userID == nil {
		query = query.Where("scope = ? AND user_id IS NULL", models.ScopeGlobal)
	} else {
		query = query.Where(
			"((scope = ? AND user_id IS NULL) OR (scope = ? AND user_id = ?))",
			models.ScopeGlobal, models.ScopeUser, *userID,
		)
	}

	var values []models.SettingValue
	if err := query.Find(&values).Error; err != nil {
		return nil, err
	}

	return values, nil
}

// ListUserIDs returns the users holding an override for a definition.
func (s *Store) ListUserIDs(definitionID uint64) ([]uint64, error) {
	var ids []uint64
	if err := s.db.Model(&models.SettingValue{}).
		Where("definition_id = ? AND scope = ? AND user_id IS NOT NULL", definitionID, models.ScopeUser).
		Order("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

// UpsertValue stores value for (definition, scope, user), updating the row
// when it exists. The caller is responsible for validating value. When two
// writers create the same row concurrently the loser gets ErrConflict.
func (s *Store) UpsertValue(
	def *models.SettingDefinition,
	scope models.Scope,
	userID *uint64,
	value models.JSON,
) (*models.SettingValue, error) {
	if def == nil || def.ID == 0 {
		return nil, ErrNotFound
	}

	if err := checkScope(scope, userID); err != nil {
		return nil, err
	}

	var stored *models.SettingValue

	err := s.Transaction(func(tx *Store) error {
		existing, err := tx.GetValue(def.ID, scope, userID)

		switch {
		case err == nil:
			existing.Value = value
			if err := tx.db.Model(existing).Select("value", "updated_at").Updates(existing).Error; err != nil {
				return translate(err, ErrNotFound)
			}

			stored = existing
			tx.valueChanged(ValueEvent{Op: OpUpdated, Definition: def, Value: existing})

			return nil

		case errors.Is(err, ErrNotFound):
			created := &models.SettingValue{
				DefinitionID: def.ID,
				Scope:        scope,
				UserID:       userID,
				Value:        value,
			}
			if err := tx.createValue(created); err != nil {
				return err
			}

			stored = created
			tx.valueChanged(ValueEvent{Op: OpCreated, Definition: def, Value: created})

			return nil

		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// createValue inserts v. A concurrent insert of the same (definition, scope,
// user) fails on the unique index with ErrConflict.
func (s *Store) createValue(v *models.SettingValue) error {
	return translate(s.db.Omit("Definition", "User").Create(v).Error, ErrNotFound)
}

// DeleteValue removes the stored value of a definition for the scope.
func (s *Store) DeleteValue(def *models.SettingDefinition, scope models.Scope, userID *uint64) error {
	if def == nil || def.ID == 0 {
		return ErrNotFound
	}

	return s.Transaction(func(tx *Store) error {
		value, err := tx.GetValue(def.ID, scope, userID)
		if err != nil {
			return err
		}

		if err := tx.db.Delete(value).Error; err != nil {
			return err
		}

		tx.valueChanged(ValueEvent{Op: OpDeleted, Definition: def, Value: value})

		return nil
	})
}

// DeleteUserValues removes every override held by a user.
func (s *Store) DeleteUserValues(userID uint64) (int, error) {
	deleted := 0

	err := s.Transaction(func(tx *Store) error {
		var values []models.SettingValue
		if err := tx.db.Preload("Definition").
			Where("scope = ? AND user_id = ?", models.ScopeUser, userID).
			Find(&values).Error; err != nil {
			return err
		}

		for i := range values {
			value := values[i]
			if err := tx.db.Delete(&value).Error; err != nil {
				return err
			}

			deleted++

			tx.valueChanged(ValueEvent{Op: OpDeleted, Definition: value.Definition, Value: &value})
		}

		return nil
	})

	return deleted, err
}

func checkScope(scope models.Scope, userID *uint64) error {
	switch scope {
	case models.ScopeGlobal:
		if userID != nil {
			return ErrInvalidScope
		}
	case models.ScopeUser:
		if userID == nil {
			return ErrInvalidScope
		}
	default:
		return ErrInvalidScope
	}

	return nil
}

func scoped(db *gorm.DB, definitionID uint64, scope models.Scope, userID *uint64) *gorm.DB {
	query := db.Where("definition_id = ? AND scope = ?", definitionID, scope)
	if userID == nil {
		return query.Where("user_id IS NULL")
	}

	return query.Where("user_id = ?", *userID)
}
