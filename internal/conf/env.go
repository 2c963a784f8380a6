package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding maps an environment variable onto a viper key.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "THERMALWATCH_DEBUG", validateEnvBool},
		{"main.name", "THERMALWATCH_NAME", nil},
		{"main.datadir", "THERMALWATCH_DATA_DIR", nil},

		{"logging.default_level", "THERMALWATCH_LOG_LEVEL", validateEnvLogLevel},

		// Database
		{"database.type", "THERMALWATCH_DB_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "THERMALWATCH_SQLITE_PATH", nil},
		{"database.mysql.host", "THERMALWATCH_MYSQL_HOST", nil},
		{"database.mysql.port", "THERMALWATCH_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "THERMALWATCH_MYSQL_USERNAME", nil},
		{"database.mysql.password", "THERMALWATCH_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "THERMALWATCH_MYSQL_DATABASE", nil},
		{"database.postgres.host", "THERMALWATCH_POSTGRES_HOST", nil},
		{"database.postgres.port", "THERMALWATCH_POSTGRES_PORT", validateEnvPort},
		{"database.postgres.username", "THERMALWATCH_POSTGRES_USERNAME", nil},
		{"database.postgres.password", "THERMALWATCH_POSTGRES_PASSWORD", nil},
		{"database.postgres.database", "THERMALWATCH_POSTGRES_DATABASE", nil},
		{"database.postgres.sslmode", "THERMALWATCH_POSTGRES_SSLMODE", nil},

		// Web server
		{"webserver.host", "THERMALWATCH_HOST", nil},
		{"webserver.port", "THERMALWATCH_PORT", validateEnvPort},

		// Detection engines
		{"detection.defaultengine", "THERMALWATCH_DEFAULT_ENGINE", nil},
		{"detection.huggingface.enabled", "THERMALWATCH_HF_ENABLED", validateEnvBool},
		{"detection.huggingface.baseurl", "THERMALWATCH_HF_BASE_URL", validateEnvURL},
		{"detection.huggingface.apitoken", "THERMALWATCH_HF_TOKEN", nil},
		{"detection.huggingface.timeout", "THERMALWATCH_HF_TIMEOUT", validateEnvDuration},
		{"detection.fixture.enabled", "THERMALWATCH_FIXTURE_ENABLED", validateEnvBool},
		{"detection.fixture.path", "THERMALWATCH_FIXTURE_PATH", nil},

		// Integrations
		{"mqtt.enabled", "THERMALWATCH_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "THERMALWATCH_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "THERMALWATCH_MQTT_USERNAME", nil},
		{"mqtt.password", "THERMALWATCH_MQTT_PASSWORD", nil},
		{"sentry.enabled", "THERMALWATCH_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "THERMALWATCH_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every environment variable and validates values that are set.
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host, got '%s'", value)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch strings.ToLower(value) {
	case DatabaseSQLite, DatabaseMySQL, DatabasePostgres:
		return nil
	}
	return fmt.Errorf("database type must be one of sqlite, mysql, postgres, got '%s'", value)
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown log level '%s'", value)
}
