package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confetti-go/confetti/internal/db/models"
)

func TestItem(t *testing.T) {
	f := setup(t)

	def := f.define(t, "ui.page_size", models.TypeInt, 25)

	item, err := f.resolver.Item(def, nil)
	require.NoError(t, err)
	assert.Equal(t, "ui.page_size", item.Key)
	assert.Equal(t, int64(25), item.Default)
	assert.Nil(t, item.GlobalValue)
	assert.Nil(t, item.UserValue)
	assert.Equal(t, int64(25), item.Effective)

	_, err = f.resolver.SetValue("ui.page_size", 50, nil, nil)
	require.NoError(t, err)
	_, err = f.resolver.SetValue("ui.page_size", 75, uid(1), nil)
	require.NoError(t, err)

	testCases := []struct {
		name      string
		user      *uint64
		userValue any
		effective any
	}{
		{name: "anonymous", user: nil, userValue: nil, effective: int64(50)},
		{name: "user with override", user: uid(1), userValue: int64(75), effective: int64(75)},
		{name: "user without override", user: uid(2), userValue: nil, effective: int64(50)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			item, err := f.resolver.Item(def, tc.user)
			require.NoError(t, err)
			assert.Equal(t, int64(50), item.GlobalValue)
			assert.Equal(t, tc.userValue, item.UserValue)
			assert.Equal(t, tc.effective, item.Effective)
		})
	}
}

func TestList(t *testing.T) {
	f := setup(t)

	f.define(t, "ui.page_size", models.TypeInt, 25)
	f.define(t, "feature.session_timeout", models.TypeDuration, 3600, func(d *models.SettingDefinition) { d.Editable = false })

	items, err := f.resolver.List(nil, false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ui.page_size", items[0].Key)

	items, err = f.resolver.List(uid(1), true)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "feature.session_timeout", items[0].Key)
	assert.False(t, items[0].Editable)
}

func TestFrontend(t *testing.T) {
	f := setup(t)

	frontend := func(d *models.SettingDefinition) { d.Frontend = true }

	f.define(t, "ui.theme", models.TypeChoice, "light", frontend, func(d *models.SettingDefinition) {
		d.Choices = models.Choices{{Value: "light", Label: "Light"}, {Value: "dark", Label: "Dark"}}
	})
	f.define(t, "ui.page_size", models.TypeInt, 25, frontend)
	f.define(t, "feature.jobs", models.TypeBool, true)

	items, err := f.resolver.Frontend()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "ui.page_size", items[0].Key)
	assert.Equal(t, "ui.theme", items[1].Key)
	assert.Len(t, items[1].Choices, 2)
	assert.True(t, f.cached(t, f.resolver.Keys().Frontend()))

	// user values never reach the frontend list
	_, err = f.resolver.SetValue("ui.theme", "dark", uid(1), nil)
	require.NoError(t, err)
	assert.True(t, f.cached(t, f.resolver.Keys().Frontend()))

	_, err = f.resolver.SetValue("ui.theme", "dark", nil, nil)
	require.NoError(t, err)
	assert.False(t, f.cached(t, f.resolver.Keys().Frontend()))

	items, err = f.resolver.Frontend()
	require.NoError(t, err)
	assert.Equal(t, "dark", items[1].Effective)
	assert.Nil(t, items[1].UserValue)

	// served from the cache
	items, err = f.resolver.Frontend()
	require.NoError(t, err)
	assert.Equal(t, "dark", items[1].Effective)

	def, err := f.store.GetDefinition("ui.page_size")
	require.NoError(t, err)
	def.Frontend = false
	require.NoError(t, f.store.UpdateDefinition(def))

	items, err = f.resolver.Frontend()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ui.theme", items[0].Key)
}
