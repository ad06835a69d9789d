package cache

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	storagemysql "github.com/gofiber/storage/mysql/v2"
	storagepostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/confetti-go/confetti/internal/config"
	"github.com/confetti-go/confetti/internal/db/dsn"
)

// ErrUnknownDriver is returned by New for an unsupported driver.
var ErrUnknownDriver = config.ErrUnknownCacheDriver

// New builds the configured cache backend and instruments it at reg.
// The sql backed drivers reuse the database settings of cfg.
func New(cfg *config.Config, reg prometheus.Registerer) (Cache, error) {
	var (
		backend Cache
		err     error
	)

	switch cfg.Cache.Driver {
	case config.CacheMemory, "":
		backend = NewMemory(cfg.Cache.Capacity)
	case config.CacheRedis:
		backend, err = NewRedis(RedisOptions{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			Timeout:  cfg.Cache.Timeout,
		})
	case config.CacheMySQL:
		backend = NewStorage(newMySQLStorage(cfg))
	case config.CachePostgres:
		backend = NewStorage(newPostgresStorage(cfg))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Cache.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", cfg.Cache.Driver, err)
	}

	instrumented, err := NewInstrumented(backend, cfg.Cache.Driver, reg)
	if err != nil {
		_ = backend.Close()

		return nil, err
	}

	return instrumented, nil
}

func newMySQLStorage(cfg *config.Config) fiber.Storage {
	return storagemysql.New(storagemysql.Config{
		ConnectionURI: dsn.Create(cfg),
		Table:         cfg.Cache.Table,
	})
}

func newPostgresStorage(cfg *config.Config) fiber.Storage {
	return storagepostgres.New(storagepostgres.Config{
		ConnectionURI: dsn.PostgresURI(cfg),
		Table:         cfg.Cache.Table,
	})
}
