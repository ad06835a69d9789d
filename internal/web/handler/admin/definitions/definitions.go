// Package definitions serves the paginated definition overview of staff users.
package definitions

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/confetti-go/confetti/internal/auth"
	"github.com/confetti-go/confetti/internal/db/controller/setting"
	"github.com/confetti-go/confetti/internal/db/models"
	"github.com/confetti-go/confetti/internal/response"
	"github.com/confetti-go/confetti/internal/web/handler"
)

const (
	// Path is the base path of the definition overview.
	Path = handler.RootPath + "admin/definitions"

	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 25

	maxPageSize = 100
)

// Definition is one row of the overview. Unlike the settings API it shows
// disabled definitions and the number of user overrides.
type Definition struct {
	Key       string             `json:"key"`
	Category  string             `json:"category"`
	Title     string             `json:"title"`
	Type      models.SettingType `json:"type"`
	Default   models.JSON        `json:"default"`
	Enabled   bool               `json:"enabled"`
	Editable  bool               `json:"editable"`
	Frontend  bool               `json:"frontend"`
	Overrides int                `json:"overrides"`
}

// Page is the paginated overview.
type Page struct {
	Definitions []Definition `json:"definitions"`
	CurrentPage int          `json:"current_page"`
	PageSize    int          `json:"page_size"`
	TotalItems  int          `json:"total_items"`
	TotalPages  int          `json:"total_pages"`
	HasPrevPage bool         `json:"has_prev_page"`
	HasNextPage bool         `json:"has_next_page"`
	SearchQuery string       `json:"search,omitempty"`
	FilterType  string       `json:"type,omitempty"`
}

// Service is the definition overview handler service.
type Service struct {
	handler.Service
	store   *setting.Store
	respond response.Func
}

// Handler is the definition overview handler.
var Handler = Service{}

// Init initializes the definition overview handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) {
	if app == nil || !deps.Valid() {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	s.store = deps.Resolver.Store()
	s.respond = deps.Respond

	app.Get(Path, auth.RequireStaff(), s.Get)
}

// Get lists every definition, filtered by ?search= and ?type= and paginated
// by ?page= and ?pageSize=.
func (s *Service) Get(c *fiber.Ctx) error {
	page, pageSize := getPaginationParams(c)
	searchQuery, filterType := getSearchAndFilter(c)

	defs, err := s.store.ListDefinitions(setting.DefinitionFilter{})
	if err != nil {
		log.Error().Err(err).Msg("failed to list setting definitions")

		return err
	}

	matched := make([]models.SettingDefinition, 0, len(defs))

	for i := range defs {
		if includeDefinition(&defs[i], searchQuery, filterType) {
			matched = append(matched, defs[i])
		}
	}

	totalItems := len(matched)
	totalPages, page := computeTotalPagesAndAdjust(totalItems, pageSize, page)
	startIdx, endIdx := pageSliceBounds(totalItems, pageSize, page)

	rows := make([]Definition, 0, endIdx-startIdx)

	for i := range matched[startIdx:endIdx] {
		def := &matched[startIdx+i]

		users, err := s.store.ListUserIDs(def.ID)
		if err != nil {
			return err
		}

		rows = append(rows, Definition{
			Key:       def.Key,
			Category:  def.CategoryLabel(),
			Title:     def.Title,
			Type:      def.Type,
			Default:   def.Default,
			Enabled:   def.Enabled,
			Editable:  def.Editable,
			Frontend:  def.Frontend,
			Overrides: len(users),
		})
	}

	log.Debug().
		Int("total_definitions", totalItems).
		Int("page", page).
		Int("page_size", pageSize).
		Str("search", searchQuery).
		Str("filter_type", filterType).
		Msg("setting definitions listed")

	return s.respond(c, fiber.StatusOK, Page{
		Definitions: rows,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
		SearchQuery: searchQuery,
		FilterType:  filterType,
	})
}

// getPaginationParams parses and normalizes page and pageSize query parameters.
func getPaginationParams(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = DefaultPageSize
	}

	return page, pageSize
}

func getSearchAndFilter(c *fiber.Ctx) (string, string) {
	return strings.TrimSpace(c.Query("search", "")), c.Query("type", "")
}

// includeDefinition matches the search case-insensitively against key and title.
func includeDefinition(def *models.SettingDefinition, searchQuery, filterType string) bool {
	if searchQuery != "" && !containsFold(def.Key, searchQuery) && !containsFold(def.Title, searchQuery) {
		return false
	}

	if filterType != "" && string(def.Type) != filterType {
		return false
	}

	return true
}

// computeTotalPagesAndAdjust computes total pages and adjusts the page into range.
func computeTotalPagesAndAdjust(totalItems, pageSize, page int) (int, int) {
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	return totalPages, page
}

// pageSliceBounds calculates start and end indices for slicing a page.
func pageSliceBounds(totalItems, pageSize, page int) (int, int) {
	startIdx := (page - 1) * pageSize

	endIdx := min(startIdx+pageSize, totalItems)

	if startIdx < 0 {
		startIdx = 0
	}

	if startIdx > endIdx {
		startIdx = endIdx
	}

	return startIdx, endIdx
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
