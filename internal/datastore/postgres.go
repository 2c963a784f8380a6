package datastore

import (
	"fmt"

	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresManager manages a PostgreSQL connection pool.
type PostgresManager struct {
	db       *gorm.DB
	location string
}

// NewPostgresManager connects to PostgreSQL through pgx.
func NewPostgresManager(cfg ServerConfig) (*PostgresManager, error) {
	db, err := gorm.Open(postgres.Open(postgresDSN(cfg)), gormConfig(cfg.SlowQueryThreshold))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "open_postgres").
			Context("host", cfg.Host).
			Build()
	}

	if err := configurePool(db); err != nil {
		return nil, err
	}

	return &PostgresManager{
		db:       db,
		location: fmt.Sprintf("%s:%s/%s", cfg.Host, cfg.Port, cfg.Database),
	}, nil
}

func (m *PostgresManager) Initialize() error { return Migrate(m.db) }
func (m *PostgresManager) DB() *gorm.DB      { return m.db }
func (m *PostgresManager) Path() string      { return m.location }
func (m *PostgresManager) Dialect() string   { return conf.DatabasePostgres }
func (m *PostgresManager) Ping() error       { return pingDB(m.db) }
func (m *PostgresManager) Close() error      { return closeDB(m.db) }

func postgresDSN(cfg ServerConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslMode)
}
