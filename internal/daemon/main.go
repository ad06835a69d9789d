// Package daemon wires the settings components together and runs the service.
package daemon

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/confetti-go/confetti/internal/cache"
	"github.com/confetti-go/confetti/internal/config"
	"github.com/confetti-go/confetti/internal/db/controller/setting"
	"github.com/confetti-go/confetti/internal/invalidation"
	"github.com/confetti-go/confetti/internal/logger"
	"github.com/confetti-go/confetti/internal/resolver"
	"github.com/confetti-go/confetti/internal/web"
)

// Core bundles the settings components shared by the daemon and the CLI.
type Core struct {
	Config      *config.Config
	DB          *gorm.DB
	Cache       cache.Cache
	Runtime     *config.Runtime
	Invalidator *invalidation.Invalidator
	Store       *setting.Store
	Resolver    *resolver.Resolver

	log zerolog.Logger
}

// Open connects the database and the cache and builds the settings stack
// on top of them. Cache metrics are registered with reg.
func Open(cfg *config.Config, reg prometheus.Registerer) (*Core, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	if err = Migrate(db); err != nil {
		return nil, err
	}

	c, err := cache.New(cfg, reg)
	if err != nil {
		return nil, err
	}

	rt := config.NewRuntime(cfg.Confetti)
	inv := invalidation.New(c, func() cache.Keys { return cache.Keys{Prefix: rt.Get().CachePrefix} })

	store, err := setting.New(db, inv)
	if err != nil {
		_ = c.Close()

		return nil, err
	}

	core := &Core{
		Config:      cfg,
		DB:          db,
		Cache:       c,
		Runtime:     rt,
		Invalidator: inv,
		Store:       store,
		Resolver:    resolver.New(store, c, rt),
		log:         logger.Component("daemon"),
	}

	rt.OnReload(func(settings config.Confetti) {
		core.log.Info().Str("cache_prefix", settings.CachePrefix).Msg("settings reloaded")
	})

	return core, nil
}

// Close releases the cache and the database connections.
func (c *Core) Close() error {
	var errs []error

	if err := c.Cache.Close(); err != nil {
		errs = append(errs, err)
	}

	if sqlDB, err := c.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Daemon represents the main application daemon.
type Daemon struct {
	*Core
	configPath string
	webService *web.Service
}

// Start seeds, watches the configuration and serves until shutdown.
func (d *Daemon) Start() error {
	defer func() {
		if err := d.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close resources")
		}
	}()

	d.autoSeed()
	d.watch()

	go d.webService.WaitShutdown()

	return d.webService.Start(":" + strconv.Itoa(d.Config.Webserver.Port))
}

// watch reloads the runtime settings whenever the config file changes.
func (d *Daemon) watch() {
	err := config.Watch(d.configPath, func(cfg config.Config, err error) {
		if err != nil {
			log.Error().Err(err).Msg("ignoring invalid configuration change")

			return
		}

		d.Runtime.Reload(cfg.Confetti)
	})
	if err != nil {
		log.Warn().Err(err).Msg("config hot reload disabled")
	}
}

// New creates a new Daemon instance with the provided configuration.
// configPath is the directory the configuration was read from.
func New(cfg *config.Config, configPath string) (*Daemon, error) {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil, config.ErrConfigNil
	}

	core, err := Open(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}

	webService, err := web.New(cfg, core.DB, core.Resolver, core.Invalidator)
	if err != nil {
		_ = core.Close()

		return nil, err
	}

	return &Daemon{
		Core:       core,
		configPath: configPath,
		webService: webService,
	}, nil
}
