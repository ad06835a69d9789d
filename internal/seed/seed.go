// Package seed creates and synchronizes categories and definitions declared
// in the [Confetti] section of the configuration.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/confetti-go/confetti/internal/config"
	"github.com/confetti-go/confetti/internal/db/controller/setting"
	"github.com/confetti-go/confetti/internal/db/models"
	"github.com/confetti-go/confetti/internal/logger"
)

const (
	// OnlyCategories limits a run to categories.
	OnlyCategories = "categories"
	// OnlyDefinitions limits a run to definitions.
	OnlyDefinitions = "definitions"

	defaultType = models.TypeJSON
)

var (
	// ErrUnknownOnly is returned for an Options.Only value other than the Only* constants.
	ErrUnknownOnly = errors.New("unknown seed scope")

	errDryRun = errors.New("dry run")
)

// Options control a seed run. The zero value only creates missing items.
type Options struct {
	// Update rewrites title, description, enabled, editable and category of existing definitions
	// and the title of existing categories.
	Update bool
	// UpdateDefaults also rewrites default, choices and type of existing definitions.
	UpdateDefaults bool
	// Only is empty, OnlyCategories or OnlyDefinitions.
	Only string
	// DryRun rolls every change back after counting it.
	DryRun bool
}

// ItemError is the failure of a single seed item.
type ItemError struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
	Err  error  `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Key, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Stats counts what a run did.
type Stats struct {
	CreatedCategories  int         `json:"created_categories"`
	UpdatedCategories  int         `json:"updated_categories"`
	CreatedDefinitions int         `json:"created_definitions"`
	UpdatedDefinitions int         `json:"updated_definitions"`
	Errors             []ItemError `json:"errors,omitempty"`
}

func (s Stats) String() string {
	return fmt.Sprintf("categories: %d created, %d updated; definitions: %d created, %d updated; %d errors",
		s.CreatedCategories, s.UpdatedCategories, s.CreatedDefinitions, s.UpdatedDefinitions, len(s.Errors))
}

type seeder struct {
	opts  Options
	stats Stats
	log   zerolog.Logger
}

// Seed creates the categories and definitions of cfg that are missing from
// store and, depending on opts, updates the existing ones. A failing item is
// recorded in Stats.Errors and the run continues. The returned error is only
// set when the run itself could not complete.
func Seed(store *setting.Store, cfg config.Confetti, opts Options) (Stats, error) {
	if opts.Only != "" && opts.Only != OnlyCategories && opts.Only != OnlyDefinitions {
		return Stats{}, fmt.Errorf("%w: %s", ErrUnknownOnly, opts.Only)
	}

	s := &seeder{
		opts: opts,
		log:  logger.Component("seed"),
	}

	err := store.Transaction(func(tx *setting.Store) error {
		if opts.Only != OnlyDefinitions {
			for _, c := range cfg.SeedCategories {
				s.category(tx, c)
			}
		}

		if opts.Only != OnlyCategories {
			for _, d := range cfg.SeedDefinitions {
				s.definition(tx, d)
			}
		}

		if opts.DryRun {
			return errDryRun
		}

		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return s.stats, err
	}

	return s.stats, nil
}

func (s *seeder) fail(kind, key string, err error) {
	s.log.Error().Err(err).Str("kind", kind).Str("key", key).Msg("seed item failed")
	s.stats.Errors = append(s.stats.Errors, ItemError{Kind: kind, Key: key, Err: err})
}

// item runs fn in a savepoint so a failing item leaves the others intact.
// The counters of a failed item are rolled back with its savepoint.
func (s *seeder) item(tx *setting.Store, kind, key string, fn func(tx *setting.Store) error) {
	before := s.stats

	if err := tx.Transaction(fn); err != nil {
		s.stats = before
		s.fail(kind, key, err)
	}
}

func (s *seeder) category(tx *setting.Store, c config.SeedCategory) {
	code := strings.TrimSpace(c.Code)
	if code == "" {
		return
	}

	title := c.Title
	if title == "" {
		title = Title(code)
	}

	s.item(tx, "category", code, func(tx *setting.Store) error {
		category, created, err := tx.EnsureCategory(code, title)
		if err != nil {
			return err
		}

		if created {
			s.stats.CreatedCategories++
			s.log.Info().Str("category", code).Msg("created category")

			return nil
		}

		if !s.opts.Update || category.Title == title {
			return nil
		}

		category.Title = title
		if err := tx.UpdateCategory(category); err != nil {
			return err
		}

		s.stats.UpdatedCategories++
		s.log.Info().Str("category", code).Msg("updated category")

		return nil
	})
}

func (s *seeder) definition(tx *setting.Store, d config.SeedDefinition) {
	key := strings.TrimSpace(d.Key)
	if key == "" {
		return
	}

	s.item(tx, "definition", key, func(tx *setting.Store) error {
		want, err := build(key, d)
		if err != nil {
			return err
		}

		if code := strings.TrimSpace(d.Category); code != "" {
			category, created, err := tx.EnsureCategory(code, Title(code))
			if err != nil {
				return err
			}

			if created {
				s.stats.CreatedCategories++
			}

			want.Category = category
			want.CategoryID = &category.ID
		}

		current, err := tx.GetDefinition(key)
		if errors.Is(err, setting.ErrNotFound) {
			if err := tx.CreateDefinition(want); err != nil {
				return err
			}

			s.stats.CreatedDefinitions++
			s.log.Info().Str("definition", key).Msg("created definition")

			return nil
		}

		if err != nil {
			return err
		}

		if !s.opts.Update && !s.opts.UpdateDefaults {
			return nil
		}

		changed := s.merge(current, want)
		if len(changed) == 0 {
			return nil
		}

		if err := tx.UpdateDefinition(current); err != nil {
			return err
		}

		s.stats.UpdatedDefinitions++
		s.log.Info().Str("definition", key).Strs("fields", changed).Msg("updated definition")

		return nil
	})
}

// merge copies the fields selected by the options from want into current
// and returns the names of the changed ones.
func (s *seeder) merge(current, want *models.SettingDefinition) []string {
	var changed []string

	if s.opts.Update {
		if current.Title != want.Title {
			current.Title = want.Title
			changed = append(changed, "title")
		}

		if current.Description != want.Description {
			current.Description = want.Description
			changed = append(changed, "description")
		}

		if current.Enabled != want.Enabled {
			current.Enabled = want.Enabled
			changed = append(changed, "enabled")
		}

		if current.Editable != want.Editable {
			current.Editable = want.Editable
			changed = append(changed, "editable")
		}

		if want.CategoryID != nil && (current.CategoryID == nil || *current.CategoryID != *want.CategoryID) {
			current.Category = want.Category
			current.CategoryID = want.CategoryID
			changed = append(changed, "category")
		}
	}

	if s.opts.UpdateDefaults {
		if !sameJSON(current.Default, want.Default) {
			current.Default = want.Default
			changed = append(changed, "default")
		}

		if !sameJSON(models.MustJSON(current.Choices), models.MustJSON(want.Choices)) {
			current.Choices = want.Choices
			changed = append(changed, "choices")
		}

		if current.Type != want.Type {
			current.Type = want.Type
			changed = append(changed, "type")
		}
	}

	return changed
}

func build(key string, d config.SeedDefinition) (*models.SettingDefinition, error) {
	typ := models.SettingType(strings.TrimSpace(d.Type))
	if typ == "" {
		typ = defaultType
	}

	def := models.NewDefinition(key, typ)

	if d.Title != "" {
		def.Title = d.Title
	}

	def.Description = d.Description
	def.Choices = d.Choices
	def.Required = d.Required
	def.Frontend = d.Frontend

	if d.Enabled != nil {
		def.Enabled = *d.Enabled
	}

	if d.Editable != nil {
		def.Editable = *d.Editable
	}

	raw, err := models.NewJSON(d.Default)
	if err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}

	def.Default = raw

	return def, nil
}

// sameJSON compares two documents by value.
func sameJSON(a, b models.JSON) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() == b.IsNull()
	}

	va, errA := a.Decode()
	vb, errB := b.Decode()

	if errA != nil || errB != nil {
		return bytes.Equal(a, b)
	}

	return reflect.DeepEqual(va, vb)
}

// Title turns a category code into a title, "ui_prefs" becomes "Ui Prefs".
func Title(code string) string {
	words := strings.FieldsFunc(code, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})

	return cases.Title(language.Und).String(strings.Join(words, " "))
}
