package config

import (
	"time"

	"github.com/confetti-go/confetti/internal/db/models"
	"github.com/confetti-go/confetti/internal/logger"
)

// Supported values of Cache.Driver.
const (
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CacheMySQL    = "mysql"
	CachePostgres = "postgres"
)

// Supported values of Confetti.NonEditablePolicy.
const (
	PolicyStoreDefault = "store_default"
	PolicyReject       = "reject"
)

const (
	// DefaultCachePrefix namespaces value cache keys.
	DefaultCachePrefix = "confetti:v1"
	// DefaultResponseMethod names the response strategy used by the HTTP API.
	DefaultResponseMethod = "default"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Cache     Cache
	Log       logger.Log
	Title     string
	Webserver Webserver
	Confetti  Confetti
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
	IdentityHeader string // header carrying the requesting user id
}

// Cache selects and configures the cache backend.
type Cache struct {
	Driver   string        // memory, redis, mysql or postgres
	Addr     string        // redis address host:port
	Password string        // redis password
	DB       int           // redis database
	Table    string        // table name for the sql backed caches
	Timeout  time.Duration // per call timeout for network backends
	Capacity uint64        // max entries of the memory cache, 0 = unlimited
}

// Confetti holds the settings of the settings service itself. It is the
// part of the configuration that can be reloaded at runtime.
type Confetti struct {
	CachePrefix       string
	AutoSeed          bool
	ResponseMethod    string
	FrontendCacheTTL  time.Duration
	ValueTTL          time.Duration // 0 = cache values until invalidated
	FlagTTL           time.Duration // 0 = cache flags until invalidated
	NonEditablePolicy string        // store_default or reject
	SeedCategories    []SeedCategory
	SeedDefinitions   []SeedDefinition
}

// SeedCategory is a category declared in the configuration.
type SeedCategory struct {
	Code  string
	Title string
}

// SeedDefinition is a setting definition declared in the configuration.
type SeedDefinition struct {
	Key         string
	Type        string
	Category    string
	Title       string
	Description string
	Default     any
	Choices     []models.Choice
	Required    bool
	Enabled     *bool // nil = enabled
	Editable    *bool // nil = editable
	Frontend    bool
}

// Default returns the configuration every file is decoded on top of.
func Default() Config {
	return Config{
		DB: DB{
			GormEngine: EngineSQLite,
			Path:       "confetti.db",
		},
		Cache: Cache{
			Driver:  CacheMemory,
			Table:   "confetti_cache",
			Timeout: 2 * time.Second,
		},
		Webserver: Webserver{
			ShutDownTime:   5,
			IdentityHeader: "X-Confetti-User",
		},
		Confetti: Confetti{
			CachePrefix:       DefaultCachePrefix,
			AutoSeed:          true,
			ResponseMethod:    DefaultResponseMethod,
			FrontendCacheTTL:  time.Minute,
			NonEditablePolicy: PolicyStoreDefault,
		},
	}
}
