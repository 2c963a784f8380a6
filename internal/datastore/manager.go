// Package datastore opens the relational store and migrates the schema.
// SQLite is the default; MySQL and PostgreSQL are supported for shared
// deployments.
package datastore

import (
	"time"

	"github.com/gridsight/thermalwatch/internal/conf"
	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
	"gorm.io/gorm"
)

// Manager owns one database connection.
type Manager interface {
	// Initialize migrates the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location for display (file path or host/db).
	Path() string
	// Dialect returns conf.DatabaseSQLite, conf.DatabaseMySQL or conf.DatabasePostgres.
	Dialect() string
	// Ping verifies the connection.
	Ping() error
	// Close closes the connection.
	Close() error
}

// Open creates the manager selected by settings.Database.Type and migrates
// the schema.
func Open(settings *conf.Settings) (Manager, error) {
	var (
		m   Manager
		err error
	)

	slow := settings.Database.SlowQueryThreshold
	switch settings.Database.Type {
	case conf.DatabaseSQLite, "":
		m, err = NewSQLiteManager(SQLiteConfig{Path: settings.SQLitePath(), SlowQueryThreshold: slow})
	case conf.DatabaseMySQL:
		m, err = NewMySQLManager(serverConfig(&settings.Database.MySQL, slow))
	case conf.DatabasePostgres:
		m, err = NewPostgresManager(serverConfig(&settings.Database.Postgres, slow))
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Database.Type).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		return nil, err
	}

	if err := m.Initialize(); err != nil {
		_ = m.Close()
		return nil, err
	}

	logger.Global().Module("datastore").Info("database ready",
		logger.String("dialect", m.Dialect()),
		logger.String("location", m.Path()))
	return m, nil
}

// ServerConfig holds connection settings for MySQL and PostgreSQL.
type ServerConfig struct {
	Host               string
	Port               string
	Username           string
	Password           string
	Database           string
	SSLMode            string
	SlowQueryThreshold time.Duration
}

func serverConfig(s *conf.SQLServerSettings, slow time.Duration) ServerConfig {
	return ServerConfig{
		Host:               s.Host,
		Port:               s.Port,
		Username:           s.Username,
		Password:           s.Password,
		Database:           s.Database,
		SSLMode:            s.SSLMode,
		SlowQueryThreshold: slow,
	}
}

// gormConfig routes GORM logging through the datastore module logger.
func gormConfig(slow time.Duration) *gorm.Config {
	return &gorm.Config{
		Logger:  logger.NewGormLoggerAdapter(logger.Global().Module("datastore"), slow),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.DetectionRecord{},
		&entities.Annotation{},
		&entities.DetectionAnnotation{},
		&entities.FeedbackLog{},
	)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Build()
	}
	return nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "get_sql_db").
			Build()
	}
	return sqlDB.Close()
}

func pingDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
