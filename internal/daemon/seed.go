package daemon

import (
	"github.com/confetti-go/confetti/internal/seed"
)

// autoSeed creates the configured categories and definitions that are
// missing. Existing ones are left alone.
func (c *Core) autoSeed() {
	settings := c.Runtime.Get()
	if !settings.AutoSeed {
		return
	}

	stats, err := seed.Seed(c.Store, settings, seed.Options{})
	if err != nil {
		c.log.Error().Err(err).Msg("auto seed failed")

		return
	}

	c.log.Info().
		Int("created_categories", stats.CreatedCategories).
		Int("created_definitions", stats.CreatedDefinitions).
		Int("errors", len(stats.Errors)).
		Msg("auto seed finished")
}
