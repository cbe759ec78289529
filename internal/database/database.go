package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gluk-w/claworc/launchpad-ai/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init() error {
	db, err := Open(config.Cfg.DatabasePath)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open opens the sqlite file at dbPath, migrates the schema and seeds the
// default plans.
func Open(dbPath string) (*gorm.DB, error) {
	dbDir := filepath.Dir(dbPath)
	if dbDir != "" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	// sqlite allows one writer; a single connection keeps quota UPDATEs from
	// failing with SQLITE_BUSY under load.
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	// Concurrent quota updates wait for the write lock instead of failing.
	if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := db.AutoMigrate(
		&Plan{},
		&Account{},
		&AccountToken{},
		&BackendKey{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	if err := seedPlans(db); err != nil {
		return nil, fmt.Errorf("seed plans: %w", err)
	}

	return db, nil
}

func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// DefaultPlans are inserted on first start. Existing rows are left alone so
// operators can tune limits in place.
var DefaultPlans = []Plan{
	{Name: "free", CopyLimit: 50, ComponentLimit: 5},
	{Name: "pro", CopyLimit: 1000, ComponentLimit: 100},
	{Name: "agency", CopyLimit: -1, ComponentLimit: -1},
}

func seedPlans(db *gorm.DB) error {
	for _, p := range DefaultPlans {
		p := p
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
			return fmt.Errorf("seed plan %s: %w", p.Name, err)
		}
	}
	return nil
}
