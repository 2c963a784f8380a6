package datastore

import (
	"fmt"
	"time"

	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLManager manages a MySQL connection pool.
type MySQLManager struct {
	db       *gorm.DB
	location string
}

// NewMySQLManager connects to MySQL.
func NewMySQLManager(cfg ServerConfig) (*MySQLManager, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(cfg.SlowQueryThreshold))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "open_mysql").
			Context("host", cfg.Host).
			Build()
	}

	if err := configurePool(db); err != nil {
		return nil, err
	}

	return &MySQLManager{
		db:       db,
		location: fmt.Sprintf("%s:%s/%s", cfg.Host, cfg.Port, cfg.Database),
	}, nil
}

func configurePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "get_sql_db").
			Build()
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

func (m *MySQLManager) Initialize() error { return Migrate(m.db) }
func (m *MySQLManager) DB() *gorm.DB      { return m.db }
func (m *MySQLManager) Path() string      { return m.location }
func (m *MySQLManager) Dialect() string   { return conf.DatabaseMySQL }
func (m *MySQLManager) Ping() error       { return pingDB(m.db) }
func (m *MySQLManager) Close() error      { return closeDB(m.db) }
