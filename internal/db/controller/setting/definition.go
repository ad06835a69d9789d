package setting

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/confetti-go/confetti/internal/db/models"
	"github.com/confetti-go/confetti/internal/validator"
)

// DefinitionFilter narrows ListDefinitions. Zero value lists everything.
type DefinitionFilter struct {
	EnabledOnly  bool
	EditableOnly bool
	FrontendOnly bool
}

// GetDefinition retrieves a definition by key regardless of its enabled flag.
func (s *Store) GetDefinition(key string) (*models.SettingDefinition, error) {
	return s.getDefinition(s.db, key)
}

// GetEnabledDefinition retrieves an enabled definition by key.
func (s *Store) GetEnabledDefinition(key string) (*models.SettingDefinition, error) {
	return s.getDefinition(s.db.Where("enabled = ?", true), key)
}

func (s *Store) getDefinition(db *gorm.DB, key string) (*models.SettingDefinition, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	var def models.SettingDefinition
	if err := db.Preload("Category").Where(byKey(key)).First(&def).Error; err != nil {
		return nil, translate(err, ErrNotFound)
	}

	return &def, nil
}

// ListDefinitions returns definitions ordered by key.
func (s *Store) ListDefinitions(filter DefinitionFilter) ([]models.SettingDefinition, error) {
	query := s.db.Preload("Category").Order(orderByKey())

	if filter.EnabledOnly {
		query = query.Where("enabled = ?", true)
	}

	if filter.EditableOnly {
		query = query.Where("editable = ?", true)
	}

	if filter.FrontendOnly {
		query = query.Where("frontend = ?", true)
	}

	var defs []models.SettingDefinition
	if err := query.Find(&defs).Error; err != nil {
		return nil, err
	}

	return defs, nil
}

// CreateDefinition validates and inserts a new definition.
func (s *Store) CreateDefinition(def *models.SettingDefinition) error {
	linkCategory(def)

	if err := validator.ValidateDefinition(def); err != nil {
		return err
	}

	return s.Transaction(func(tx *Store) error {
		_, err := tx.GetDefinition(def.Key)
		if err == nil {
			return ErrConflict
		}

		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := tx.db.Omit(clause.Associations).Create(def).Error; err != nil {
			return translate(err, ErrNotFound)
		}

		tx.definitionChanged(DefinitionEvent{Op: OpCreated, Definition: def})

		return nil
	})
}

// UpdateDefinition validates and saves every field of an existing definition.
func (s *Store) UpdateDefinition(def *models.SettingDefinition) error {
	if def.ID == 0 {
		return ErrNotFound
	}

	linkCategory(def)

	if err := validator.ValidateDefinition(def); err != nil {
		return err
	}

	return s.Transaction(func(tx *Store) error {
		var previous models.SettingDefinition
		if err := tx.db.First(&previous, def.ID).Error; err != nil {
			return translate(err, ErrNotFound)
		}

		if previous.Key != def.Key {
			if _, err := tx.GetDefinition(def.Key); err == nil {
				return ErrConflict
			}
		}

		if err := tx.db.Omit(clause.Associations).Save(def).Error; err != nil {
			return translate(err, ErrNotFound)
		}

		userIDs, err := tx.ListUserIDs(def.ID)
		if err != nil {
			return err
		}

		tx.definitionChanged(DefinitionEvent{
			Op:         OpUpdated,
			Definition: def,
			Previous:   &previous,
			UserIDs:    userIDs,
		})

		return nil
	})
}

// DeleteDefinition removes a definition together with all of its values.
func (s *Store) DeleteDefinition(key string) error {
	return s.Transaction(func(tx *Store) error {
		def, err := tx.GetDefinition(key)
		if err != nil {
			return err
		}

		values, err := tx.ListValues(def.ID)
		if err != nil {
			return err
		}

		userIDs := make([]uint64, 0, len(values))

		for i := range values {
			value := values[i]
			if err := tx.db.Delete(&value).Error; err != nil {
				return err
			}

			if value.UserID != nil {
				userIDs = append(userIDs, *value.UserID)
			}

			tx.valueChanged(ValueEvent{Op: OpDeleted, Definition: def, Value: &value})
		}

		if err := tx.db.Delete(def).Error; err != nil {
			return err
		}

		tx.definitionChanged(DefinitionEvent{Op: OpDeleted, Definition: def, UserIDs: userIDs})

		return nil
	})
}

func linkCategory(def *models.SettingDefinition) {
	if def.Category != nil && def.Category.ID != 0 {
		id := def.Category.ID
		def.CategoryID = &id
	}
}
