package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteConfig configures a SQLiteManager.
type SQLiteConfig struct {
	Path               string
	SlowQueryThreshold time.Duration
}

// SQLiteManager manages a single-file SQLite database.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens (creating if needed) the database at cfg.Path.
func NewSQLiteManager(cfg SQLiteConfig) (*SQLiteManager, error) {
	if cfg.Path == "" {
		return nil, errors.Newf("SQLite path is empty").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryFileIO).
				Context("path", dir).
				Build()
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", cfg.Path)
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg.SlowQueryThreshold))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "open_sqlite").
			Context("path", cfg.Path).
			Build()
	}

	// SQLite allows one writer; serialize through a single connection so
	// replace transactions never hit SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryDatabase).Build()
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteManager{db: db, dbPath: cfg.Path}, nil
}

func (m *SQLiteManager) Initialize() error { return Migrate(m.db) }
func (m *SQLiteManager) DB() *gorm.DB      { return m.db }
func (m *SQLiteManager) Path() string      { return m.dbPath }
func (m *SQLiteManager) Dialect() string   { return conf.DatabaseSQLite }
func (m *SQLiteManager) Ping() error       { return pingDB(m.db) }
func (m *SQLiteManager) Close() error      { return closeDB(m.db) }
