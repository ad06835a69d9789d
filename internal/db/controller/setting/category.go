package setting

import (
	"errors"

	"github.com/confetti-go/confetti/internal/db/models"
)

// GetCategory retrieves a category by its code.
func (s *Store) GetCategory(code string) (*models.SettingCategory, error) {
	if code == "" {
		return nil, ErrKeyEmpty
	}

	var category models.SettingCategory
	if err := s.db.Where(codeQueryPattern, code).First(&category).Error; err != nil {
		return nil, translate(err, ErrCategoryNotFound)
	}

	return &category, nil
}

// ListCategories returns all categories ordered by code.
func (s *Store) ListCategories() ([]models.SettingCategory, error) {
	var categories []models.SettingCategory
	if err := s.db.Order("code").Find(&categories).Error; err != nil {
		return nil, err
	}

	return categories, nil
}

// CreateCategory inserts a new category.
func (s *Store) CreateCategory(category *models.SettingCategory) error {
	if category.Code == "" {
		return ErrKeyEmpty
	}

	_, err := s.GetCategory(category.Code)
	if err == nil {
		return ErrConflict
	}

	if !errors.Is(err, ErrCategoryNotFound) {
		return err
	}

	return translate(s.db.Create(category).Error, ErrCategoryNotFound)
}

// UpdateCategory saves the title of an existing category.
func (s *Store) UpdateCategory(category *models.SettingCategory) error {
	if category.ID == 0 {
		return ErrCategoryNotFound
	}

	result := s.db.Model(category).Select("code", "title", "updated_at").Updates(category)
	if result.Error != nil {
		return translate(result.Error, ErrCategoryNotFound)
	}

	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// EnsureCategory returns the category with the given code, creating it with
// title when missing. The boolean reports whether it was created.
func (s *Store) EnsureCategory(code, title string) (*models.SettingCategory, bool, error) {
	category, err := s.GetCategory(code)
	if err == nil {
		return category, false, nil
	}

	if !errors.Is(err, ErrCategoryNotFound) {
		return nil, false, err
	}

	category = &models.SettingCategory{Code: code, Title: title}
	if err := s.CreateCategory(category); err != nil {
		return nil, false, err
	}

	return category, true, nil
}

// DeleteCategory removes a category that no definition references.
func (s *Store) DeleteCategory(code string) error {
	return s.Transaction(func(tx *Store) error {
		category, err := tx.GetCategory(code)
		if err != nil {
			return err
		}

		var refs int64
		if err := tx.db.Model(&models.SettingDefinition{}).
			Where("category_id = ?", category.ID).
			Count(&refs).Error; err != nil {
			return err
		}

		if refs > 0 {
			return ErrCategoryInUse
		}

		return tx.db.Delete(category).Error
	})
}
