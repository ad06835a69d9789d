package daemon

import (
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/confetti-go/confetti/internal/config"
	"github.com/confetti-go/confetti/internal/db/dsn"
	"github.com/confetti-go/confetti/internal/db/models"
	"github.com/confetti-go/confetti/internal/logger/adapter/stdlogger"
)

const (
	slowQueryThreshold = 200 * time.Millisecond
	sqliteForeignKeys  = "_pragma=foreign_keys(1)"
)

// OpenDB opens the configured database. Its log lines go through zerolog.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.EngineSQLite, "":
		dialector = sqlite.Open(sqlitePath(cfg.DB.Path))
	case config.EngineMySQL:
		dialector = gormmysql.Open(dsn.Create(cfg)) // open db with gorm mysql driver
	case config.EnginePostgres:
		dialector = gormpostgres.Open(dsn.Postgres(cfg))
	default:
		return nil, config.ErrUnknownGormEngine
	}

	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(
			stdlogger.NewComponent("gorm", zerolog.WarnLevel),
			gormlogger.Config{
				SlowThreshold:             slowQueryThreshold,
				LogLevel:                  gormLogLevel(cfg.Log.DBLogLevel),
				IgnoreRecordNotFoundError: true,
			},
		),
	})
}

const (
	ownerField         = "Owner"
	legacyValueIndex   = "idx_setting_value_unique"
	backfillOwnerQuery = "UPDATE setting_values SET owner = user_id WHERE user_id IS NOT NULL"
)

// Migrate creates or updates the tables of the settings models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.SettingCategory{},
		&models.SettingDefinition{},
	); err != nil {
		return err
	}

	if err := migrateValueOwner(db); err != nil {
		return err
	}

	return db.AutoMigrate(&models.SettingValue{})
}

// migrateValueOwner upgrades a values table created before the owner column
// existed: the column is added and filled before its unique index is built.
func migrateValueOwner(db *gorm.DB) error {
	if !db.Migrator().HasTable(&models.SettingValue{}) {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		m := tx.Migrator()

		if m.HasIndex(&models.SettingValue{}, legacyValueIndex) {
			if err := m.DropIndex(&models.SettingValue{}, legacyValueIndex); err != nil {
				return err
			}
		}

		if m.HasColumn(&models.SettingValue{}, ownerField) {
			return nil
		}

		if err := m.AddColumn(&models.SettingValue{}, ownerField); err != nil {
			return err
		}

		return tx.Exec(backfillOwnerQuery).Error
	})
}

// sqlitePath enables foreign keys so cascades work like on the server engines.
func sqlitePath(path string) string {
	if path == "" {
		path = "confetti.db"
	}

	if strings.Contains(path, "?") {
		return path + "&" + sqliteForeignKeys
	}

	return path + "?" + sqliteForeignKeys
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
