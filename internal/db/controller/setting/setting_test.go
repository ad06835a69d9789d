package setting

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/confetti-go/confetti/internal/db/models"
	"github.com/confetti-go/confetti/internal/validator"
)

// recorder collects observer notifications.
type recorder struct {
	values      []ValueEvent
	definitions []DefinitionEvent
}

func (r *recorder) ValueChanged(ev ValueEvent)           { r.values = append(r.values, ev) }
func (r *recorder) DefinitionChanged(ev DefinitionEvent) { r.definitions = append(r.definitions, ev) }

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	// Migrate the schema
	err = db.AutoMigrate(&models.User{}, &models.SettingCategory{}, &models.SettingDefinition{}, &models.SettingValue{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func setupStore(t *testing.T) (*Store, *recorder) {
	t.Helper()

	rec := &recorder{}
	store, err := New(setupTestDB(t), rec)
	require.NoError(t, err)

	return store, rec
}

func createDefinition(t *testing.T, store *Store, key string, typ models.SettingType, def any) *models.SettingDefinition {
	t.Helper()

	definition := models.NewDefinition(key, typ)
	definition.Default = models.MustJSON(def)
	require.NoError(t, store.CreateDefinition(definition))

	return definition
}

func createUser(t *testing.T, store *Store, id uint64) *uint64 {
	t.Helper()

	require.NoError(t, store.DB().Create(&models.User{ID: id, Active: true}).Error)

	return &id
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	require.ErrorIs(t, err, ErrDBNil)
}

func TestCategories(t *testing.T) {
	store, _ := setupStore(t)

	category, created, err := store.EnsureCategory("ui", "Ui")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, category.ID)

	again, created, err := store.EnsureCategory("ui", "Other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, category.ID, again.ID)
	assert.Equal(t, "Ui", again.Title)

	require.ErrorIs(t, store.CreateCategory(&models.SettingCategory{Code: "ui"}), ErrConflict)
	require.ErrorIs(t, store.CreateCategory(&models.SettingCategory{}), ErrKeyEmpty)

	again.Title = "User interface"
	require.NoError(t, store.UpdateCategory(again))

	got, err := store.GetCategory("ui")
	require.NoError(t, err)
	assert.Equal(t, "User interface", got.Title)

	_, err = store.GetCategory("missing")
	require.ErrorIs(t, err, ErrCategoryNotFound)

	categories, err := store.ListCategories()
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestDeleteCategoryProtected(t *testing.T) {
	store, _ := setupStore(t)

	category, _, err := store.EnsureCategory("ui", "Ui")
	require.NoError(t, err)

	def := models.NewDefinition("ui.theme", models.TypeStr)
	def.Category = category
	require.NoError(t, store.CreateDefinition(def))
	require.NotNil(t, def.CategoryID)

	require.ErrorIs(t, store.DeleteCategory("ui"), ErrCategoryInUse)

	require.NoError(t, store.DeleteDefinition("ui.theme"))
	require.NoError(t, store.DeleteCategory("ui"))
	require.ErrorIs(t, store.DeleteCategory("ui"), ErrCategoryNotFound)
}

func TestCreateDefinition(t *testing.T) {
	testCases := []struct {
		name          string
		definition    func() *models.SettingDefinition
		expectedError error
	}{
		{
			name: "valid",
			definition: func() *models.SettingDefinition {
				return models.NewDefinition("feature.jobs", models.TypeBool)
			},
		},
		{
			name: "invalid key",
			definition: func() *models.SettingDefinition {
				return models.NewDefinition("Feature Jobs", models.TypeBool)
			},
			expectedError: validator.ErrValidation,
		},
		{
			name: "invalid default",
			definition: func() *models.SettingDefinition {
				def := models.NewDefinition("feature.jobs", models.TypeBool)
				def.Default = models.MustJSON("yes")

				return def
			},
			expectedError: validator.ErrValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, rec := setupStore(t)

			err := store.CreateDefinition(tc.definition())
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.Empty(t, rec.definitions)

				return
			}

			require.NoError(t, err)
			require.Len(t, rec.definitions, 1)
			assert.Equal(t, OpCreated, rec.definitions[0].Op)
		})
	}
}

func TestCreateDefinitionConflict(t *testing.T) {
	store, _ := setupStore(t)

	createDefinition(t, store, "feature.jobs", models.TypeBool, true)

	err := store.CreateDefinition(models.NewDefinition("feature.jobs", models.TypeBool))
	require.ErrorIs(t, err, ErrConflict)
}

func TestGetDefinition(t *testing.T) {
	store, _ := setupStore(t)

	def := createDefinition(t, store, "feature.jobs", models.TypeBool, true)

	got, err := store.GetDefinition("feature.jobs")
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.True(t, got.Editable)
	assert.JSONEq(t, "true", string(got.Default))

	def.Enabled = false
	require.NoError(t, store.UpdateDefinition(def))

	_, err = store.GetEnabledDefinition("feature.jobs")
	require.ErrorIs(t, err, ErrNotFound)

	got, err = store.GetDefinition("feature.jobs")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	_, err = store.GetDefinition("")
	require.ErrorIs(t, err, ErrKeyEmpty)
}

func TestListDefinitions(t *testing.T) {
	store, _ := setupStore(t)

	createDefinition(t, store, "b.second", models.TypeInt, 1)
	createDefinition(t, store, "a.first", models.TypeInt, 1)

	locked := models.NewDefinition("c.locked", models.TypeInt)
	locked.Editable = false
	locked.Frontend = true
	require.NoError(t, store.CreateDefinition(locked))

	testCases := []struct {
		name   string
		filter DefinitionFilter
		keys   []string
	}{
		{name: "all ordered by key", keys: []string{"a.first", "b.second", "c.locked"}},
		{name: "editable only", filter: DefinitionFilter{EditableOnly: true}, keys: []string{"a.first", "b.second"}},
		{name: "frontend only", filter: DefinitionFilter{FrontendOnly: true}, keys: []string{"c.locked"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			defs, err := store.ListDefinitions(tc.filter)
			require.NoError(t, err)

			keys := make([]string, 0, len(defs))
			for _, def := range defs {
				keys = append(keys, def.Key)
			}

			assert.Equal(t, tc.keys, keys)
		})
	}
}

func TestUpdateDefinitionReportsUsers(t *testing.T) {
	store, rec := setupStore(t)

	def := createDefinition(t, store, "ui.size", models.TypeInt, 10)
	for _, id := range []uint64{3, 1, 2} {
		_, err := store.UpsertValue(def, models.ScopeUser, createUser(t, store, id), models.MustJSON(id))
		require.NoError(t, err)
	}

	_, err := store.UpsertValue(def, models.ScopeGlobal, nil, models.MustJSON(5))
	require.NoError(t, err)

	def.Default = models.MustJSON(20)
	require.NoError(t, store.UpdateDefinition(def))

	last := rec.definitions[len(rec.definitions)-1]
	assert.Equal(t, OpUpdated, last.Op)
	assert.Equal(t, []uint64{1, 2, 3}, last.UserIDs)
	require.NotNil(t, last.Previous)
	assert.JSONEq(t, "10", string(last.Previous.Default))
}

func TestUpdateDefinitionRenameConflict(t *testing.T) {
	store, _ := setupStore(t)

	createDefinition(t, store, "a.one", models.TypeInt, 1)
	def := createDefinition(t, store, "a.two", models.TypeInt, 2)

	def.Key = "a.one"
	require.ErrorIs(t, store.UpdateDefinition(def), ErrConflict)
}

func TestDeleteDefinitionCascades(t *testing.T) {
	store, rec := setupStore(t)

	def := createDefinition(t, store, "ui.size", models.TypeInt, 10)
	_, err := store.UpsertValue(def, models.ScopeGlobal, nil, models.MustJSON(5))
	require.NoError(t, err)
	_, err = store.UpsertValue(def, models.ScopeUser, createUser(t, store, 7), models.MustJSON(6))
	require.NoError(t, err)

	rec.values = nil

	require.NoError(t, store.DeleteDefinition("ui.size"))

	var count int64
	require.NoError(t, store.DB().Model(&models.SettingValue{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.Len(t, rec.values, 2)

	last := rec.definitions[len(rec.definitions)-1]
	assert.Equal(t, OpDeleted, last.Op)
	assert.Equal(t, []uint64{7}, last.UserIDs)

	require.ErrorIs(t, store.DeleteDefinition("ui.size"), ErrNotFound)
}

func TestUpsertValue(t *testing.T) {
	store, rec := setupStore(t)

	def := createDefinition(t, store, "ui.size", models.TypeInt, 10)
	user := createUser(t, store, 42)

	first, err := store.UpsertValue(def, models.ScopeGlobal, nil, models.MustJSON(1))
	require.NoError(t, err)

	second, err := store.UpsertValue(def, models.ScopeGlobal, nil, models.MustJSON(2))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "one global row per definition")

	_, err = store.UpsertValue(def, models.ScopeUser, user, models.MustJSON(3))
	require.NoError(t, err)

	global, err := store.GetValue(def.ID, models.ScopeGlobal, nil)
	require.NoError(t, err)
	assert.JSONEq(t, "2", string(global.Value))

	own, err := store.GetValue(def.ID, models.ScopeUser, user)
	require.NoError(t, err)
	assert.JSONEq(t, "3", string(own.Value))

	require.Len(t, rec.values, 3)
	assert.Equal(t, OpCreated, rec.values[0].Op)
	assert.Equal(t, OpUpdated, rec.values[1].Op)
	assert.Equal(t, OpCreated, rec.values[2].Op)

	cleared, err := store.UpsertValue(def, models.ScopeGlobal, nil, nil)
	require.NoError(t, err)
	assert.True(t, cleared.Value.IsNull())

	global, err = store.GetValue(def.ID, models.ScopeGlobal, nil)
	require.NoError(t, err)
	assert.True(t, global.Value.IsNull())
}

func TestCreateValueConflict(t *testing.T) {
	store, _ := setupStore(t)

	def := createDefinition(t, store, "ui.size", models.TypeInt, 10)
	user := createUser(t, store, 42)

	_, err := store.UpsertValue(def, models.ScopeGlobal, nil, models.MustJSON(1))
	require.NoError(t, err)

	_, err = store.UpsertValue(def, models.ScopeUser, user, models.MustJSON(2))
	require.NoError(t, err)

	testCases := []struct {
		name   string
		scope  models.Scope
		userID *uint64
	}{
		{name: "second global row", scope: models.ScopeGlobal},
		{name: "second user row", scope: models.ScopeUser, userID: user},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// an insert that lost the race against the first writer
			err := store.createValue(&models.SettingValue{
				DefinitionID: def.ID,
				Scope:        tc.scope,
				UserID:       tc.userID,
				Value:        models.MustJSON(3),
			})
			require.ErrorIs(t, err, ErrConflict)
		})
	}

	values, err := store.ListValues(def.ID)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, models.GlobalOwner, values[0].Owner)
	assert.Equal(t, uint64(42), values[1].Owner)
}

func TestUpsertValueScope(t *testing.T) {
	store, _ := setupStore(t)

	def := createDefinition(t, store, "ui.size", models.TypeInt, 10)
	user := uint64(1)

	testCases := []struct {
		name   string
		scope  models.Scope
		userID *uint64
	}{
		{name: "global with user", scope: models.ScopeGlobal, userID: &user},
		{name: "user without user", scope: models.ScopeUser},
		{name: "unknown scope", scope: models.Scope("tenant")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.UpsertValue(def, tc.scope, tc.userID, models.MustJSON(1))
			require.ErrorIs(t, err, ErrInvalidScope)
		})
	}

	_, err := store.UpsertValue(&models.SettingDefinition{}, models.ScopeGlobal, nil, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteValue(t *testing.T) {
	store, rec := setupStore(t)

	def := createDefinition(t, store, "ui.size", models.TypeInt, 10)
	_, err := store.UpsertValue(def, models.ScopeGlobal, nil, models.MustJSON(1))
	require.NoError(t, err)

	require.NoError(t, store.DeleteValue(def, models.ScopeGlobal, nil))
	assert.Equal(t, OpDeleted, rec.values[len(rec.values)-1].Op)

	require.ErrorIs(t, store.DeleteValue(def, models.ScopeGlobal, nil), ErrNotFound)
}

func TestDeleteUserValues(t *testing.T) {
	store, rec := setupStore(t)

	a := createDefinition(t, store, "a.one", models.TypeInt, 1)
	b := createDefinition(t, store, "b.two", models.TypeInt, 2)
	user := createUser(t, store, 9)

	for _, def := range []*models.SettingDefinition{a, b} {
		_, err := store.UpsertValue(def, models.ScopeUser, user, models.MustJSON(0))
		require.NoError(t, err)
	}

	rec.values = nil

	deleted, err := store.DeleteUserValues(9)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	require.Len(t, rec.values, 2)
	assert.Equal(t, "a.one", rec.values[0].Definition.Key)
}

func TestTransactionDefersNotifications(t *testing.T) {
	store, rec := setupStore(t)

	err := store.Transaction(func(tx *Store) error {
		createDefinition(t, tx, "a.one", models.TypeInt, 1)
		assert.Empty(t, rec.definitions, "notified before commit")

		return ErrConflict
	})
	require.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, rec.definitions, "notified after rollback")

	_, err = store.GetDefinition("a.one")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Transaction(func(tx *Store) error {
		createDefinition(t, tx, "a.one", models.TypeInt, 1)

		return nil
	}))
	assert.Len(t, rec.definitions, 1)
}

func TestNestedTransactionRollback(t *testing.T) {
	store, rec := setupStore(t)

	require.NoError(t, store.Transaction(func(tx *Store) error {
		createDefinition(t, tx, "a.kept", models.TypeInt, 1)

		err := tx.Transaction(func(inner *Store) error {
			createDefinition(t, inner, "a.dropped", models.TypeInt, 2)

			return ErrConflict
		})
		require.ErrorIs(t, err, ErrConflict)

		return nil
	}))

	require.Len(t, rec.definitions, 1)
	assert.Equal(t, "a.kept", rec.definitions[0].Definition.Key)

	_, err := store.GetDefinition("a.dropped")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListScopedValues(t *testing.T) {
	store, _ := setupStore(t)

	a := createDefinition(t, store, "a.one", models.TypeInt, 1)
	b := createDefinition(t, store, "b.two", models.TypeInt, 2)
	alice := createUser(t, store, 1)
	bob := createUser(t, store, 2)

	_, err := store.UpsertValue(a, models.ScopeGlobal, nil, models.MustJSON(10))
	require.NoError(t, err)
	_, err = store.UpsertValue(a, models.ScopeUser, alice, models.MustJSON(11))
	require.NoError(t, err)
	_, err = store.UpsertValue(b, models.ScopeUser, bob, models.MustJSON(22))
	require.NoError(t, err)

	ids := []uint64{a.ID, b.ID}

	values, err := store.ListScopedValues(ids, nil)
	require.NoError(t, err)
	assert.Len(t, values, 1)

	values, err = store.ListScopedValues(ids, alice)
	require.NoError(t, err)
	assert.Len(t, values, 2)

	values, err = store.ListScopedValues(ids, bob)
	require.NoError(t, err)
	assert.Len(t, values, 2)

	values, err = store.ListScopedValues(nil, bob)
	require.NoError(t, err)
	assert.Empty(t, values)
}
