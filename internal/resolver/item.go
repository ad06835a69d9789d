package resolver

import (
	"encoding/json"

	"github.com/confetti-go/confetti/internal/db/controller/setting"
	"github.com/confetti-go/confetti/internal/db/models"
)

// Item is the read model of one setting for a requester.
type Item struct {
	Key         string             `json:"key"`
	Category    string             `json:"category"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Type        models.SettingType `json:"type"`
	Choices     models.Choices     `json:"choices,omitempty"`
	Default     any                `json:"default"`
	GlobalValue any                `json:"global_value"`
	UserValue   any                `json:"user_value"`
	Effective   any                `json:"effective"`
	Frontend    bool               `json:"frontend"`
	Required    bool               `json:"required"`
	Editable    bool               `json:"editable"`
}

func newItem(def *models.SettingDefinition, global, own models.JSON, user *uint64) Item {
	item := Item{
		Key:         def.Key,
		Category:    def.CategoryLabel(),
		Title:       def.Title,
		Description: def.Description,
		Type:        def.Type,
		Choices:     def.Choices,
		Frontend:    def.Frontend,
		Required:    def.Required,
		Editable:    def.Editable,
	}

	item.Default, _ = decode(def.Default)
	item.GlobalValue, _ = decode(global)

	if user != nil {
		item.UserValue, _ = decode(own)
	}

	switch {
	case item.UserValue != nil:
		item.Effective = item.UserValue
	case item.GlobalValue != nil:
		item.Effective = item.GlobalValue
	default:
		item.Effective = item.Default
	}

	return item
}

// Item builds the read model of def for user, nil for an anonymous requester.
func (r *Resolver) Item(def *models.SettingDefinition, user *uint64) (Item, error) {
	items, err := r.items([]models.SettingDefinition{*def}, user)
	if err != nil {
		return Item{}, err
	}

	return items[0], nil
}

// List builds the read model of every definition. Non-editable definitions
// are only included when includeNonEditable is set.
func (r *Resolver) List(user *uint64, includeNonEditable bool) ([]Item, error) {
	defs, err := r.store.ListDefinitions(setting.DefinitionFilter{EditableOnly: !includeNonEditable})
	if err != nil {
		return nil, err
	}

	return r.items(defs, user)
}

// Frontend returns the anonymous read model of the frontend definitions.
// The list is cached for FrontendCacheTTL.
func (r *Resolver) Frontend() ([]Item, error) {
	key := r.Keys().Frontend()

	if raw, ok, err := r.cache.Get(key); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	} else if ok {
		var items []Item
		if err := json.Unmarshal(raw, &items); err == nil {
			return items, nil
		}
	}

	defs, err := r.store.ListDefinitions(setting.DefinitionFilter{FrontendOnly: true})
	if err != nil {
		return nil, err
	}

	items, err := r.items(defs, nil)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(items); err == nil {
		if err := r.cache.Set(key, raw, r.runtime.Get().FrontendCacheTTL); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}

	return items, nil
}

func (r *Resolver) items(defs []models.SettingDefinition, user *uint64) ([]Item, error) {
	ids := make([]uint64, 0, len(defs))
	for _, def := range defs {
		ids = append(ids, def.ID)
	}

	values, err := r.store.ListScopedValues(ids, user)
	if err != nil {
		return nil, err
	}

	global := make(map[uint64]models.JSON, len(values))
	own := make(map[uint64]models.JSON, len(values))

	for _, v := range values {
		if v.Scope == models.ScopeGlobal {
			global[v.DefinitionID] = v.Value
		} else {
			own[v.DefinitionID] = v.Value
		}
	}

	items := make([]Item, 0, len(defs))
	for i := range defs {
		items = append(items, newItem(&defs[i], global[defs[i].ID], own[defs[i].ID], user))
	}

	return items, nil
}
