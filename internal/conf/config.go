// Package conf loads and validates thermalwatch settings from config.yaml,
// .env and THERMALWATCH_* environment variables.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const appName = "thermalwatch"

// Database backends.
const (
	DatabaseSQLite   = "sqlite"
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"
)

// Settings is the root configuration structure.
type Settings struct {
	Debug bool

	Version   string `yaml:"-"`
	BuildDate string `yaml:"-"`

	Main struct {
		Name    string // node name, used as MQTT client id and in alerts
		DataDir string // base directory for the SQLite database and fixtures
	}

	Logging logger.LoggingConfig

	Database     DatabaseSettings
	WebServer    WebServerSettings
	Detection    DetectionSettings
	MQTT         MQTTSettings
	Notification NotificationSettings
	Sentry       SentrySettings
	Metrics      MetricsSettings
}

// DatabaseSettings selects and configures the relational store.
type DatabaseSettings struct {
	Type               string        // sqlite, mysql or postgres
	SlowQueryThreshold time.Duration // queries slower than this are logged at WARN
	SQLite             struct {
		Path string
	}
	MySQL    SQLServerSettings
	Postgres SQLServerSettings
}

// SQLServerSettings holds connection details for networked databases.
type SQLServerSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string // postgres only
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Enabled         bool
	Host            string
	Port            string
	BodyLimit       string   // echo body limit, e.g. "10M"
	AllowedOrigins  []string // CORS origins of the annotation editor
	ShutdownTimeout time.Duration
}

// DetectionSettings configures the anomaly detection engines.
type DetectionSettings struct {
	DefaultEngine   string
	StatusCacheTTL  time.Duration // how long engine availability probes are cached
	SeedAnnotations bool          // create AI-generated annotations for each detection record
	HuggingFace     HuggingFaceSettings
	Fixture         FixtureSettings
}

// HuggingFaceSettings configures the hosted HuggingFace Space engine.
type HuggingFaceSettings struct {
	Enabled   bool
	BaseURL   string
	APIToken  string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
}

// FixtureSettings configures the YAML-backed offline engine.
type FixtureSettings struct {
	Enabled bool
	Path    string
}

// MQTTSettings configures detection event publishing.
type MQTTSettings struct {
	Enabled        bool
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Topic          string
	Retain         bool
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// NotificationSettings configures critical finding alerts via shoutrrr URLs.
type NotificationSettings struct {
	Enabled     bool
	URLs        []string
	Timeout     time.Duration
	MinCritical int // alert when a detection has at least this many critical findings
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	Debug       bool
	SampleRate  float64
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
	Path    string
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	configFile       string
)

// SetConfigFile makes Load read an explicit file instead of searching the default paths.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFile = path
}

// Load reads configuration, applies environment overrides and validates it.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the loaded settings, loading them on first use.
func Setting() *Settings {
	settingsMutex.RLock()
	s := settingsInstance
	settingsMutex.RUnlock()
	if s != nil {
		return s
	}

	s, err := Load()
	if err != nil {
		logger.Global().Module("conf").Error("failed to load settings", logger.Error(err))
		return nil
	}
	return s
}

func initViper() error {
	setDefaultConfig()

	if err := loadDotEnv(); err != nil {
		return err
	}
	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Global().Module("conf").Info("no config file found, using defaults and environment")
			return nil
		}
		return errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("operation", "read_config").
			Build()
	}
	return nil
}

// loadDotEnv loads .env from the working directory when present. Existing
// environment variables win over values in the file.
func loadDotEnv() error {
	envFile := os.Getenv("THERMALWATCH_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err != nil {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("env_file", envFile).
			Build()
	}
	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}
	return append(paths, filepath.Join("/etc", appName))
}

// SQLitePath resolves the SQLite database path against the data directory.
func (s *Settings) SQLitePath() string {
	return s.dataPath(s.Database.SQLite.Path)
}

// FixturePath resolves the fixture engine file against the data directory.
func (s *Settings) FixturePath() string {
	return s.dataPath(s.Detection.Fixture.Path)
}

func (s *Settings) dataPath(path string) string {
	if path == "" || filepath.IsAbs(path) || s.Main.DataDir == "" {
		return path
	}
	return filepath.Join(s.Main.DataDir, path)
}
