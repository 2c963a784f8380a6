package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError collects every settings problem found in one pass.
type ValidationError struct {
	Errors []string
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", v.Errors)
}

// ValidateSettings checks the loaded settings for consistency.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateDetectionSettings(&settings.Detection); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateNotificationSettings(&settings.Notification); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "Sentry is enabled but no DSN is configured")
	}
	if settings.Sentry.SampleRate < 0 || settings.Sentry.SampleRate > 1 {
		ve.Errors = append(ve.Errors, "Sentry sample rate must be between 0 and 1")
	}
	if settings.Metrics.Enabled && !strings.HasPrefix(settings.Metrics.Path, "/") {
		ve.Errors = append(ve.Errors, "metrics path must start with '/'")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	settings.Type = strings.ToLower(settings.Type)

	switch settings.Type {
	case DatabaseSQLite:
		if settings.SQLite.Path == "" {
			return fmt.Errorf("SQLite path is required")
		}
	case DatabaseMySQL:
		return validateSQLServer("MySQL", &settings.MySQL)
	case DatabasePostgres:
		return validateSQLServer("Postgres", &settings.Postgres)
	default:
		return fmt.Errorf("unsupported database type '%s'", settings.Type)
	}
	if settings.SlowQueryThreshold < 0 {
		return fmt.Errorf("slow query threshold must not be negative")
	}
	return nil
}

func validateSQLServer(name string, settings *SQLServerSettings) error {
	var errs []string
	if settings.Host == "" {
		errs = append(errs, name+" host is required")
	}
	if settings.Database == "" {
		errs = append(errs, name+" database name is required")
	}
	if err := validatePort(settings.Port); err != nil {
		errs = append(errs, fmt.Sprintf("%s port: %v", name, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, ", "))
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	if err := validatePort(settings.Port); err != nil {
		return fmt.Errorf("WebServer port: %w", err)
	}
	return nil
}

func validateDetectionSettings(settings *DetectionSettings) error {
	var errs []string

	if !settings.HuggingFace.Enabled && !settings.Fixture.Enabled {
		errs = append(errs, "at least one detection engine must be enabled")
	}
	if settings.HuggingFace.Enabled {
		if err := validateEnvURL(settings.HuggingFace.BaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("HuggingFace base URL: %v", err))
		}
		if settings.HuggingFace.Timeout <= 0 {
			errs = append(errs, "HuggingFace timeout must be positive")
		}
		if settings.HuggingFace.RateLimit < 0 {
			errs = append(errs, "HuggingFace rate limit must not be negative")
		}
		if settings.HuggingFace.RateLimit > 0 && settings.HuggingFace.Burst < 1 {
			errs = append(errs, "HuggingFace burst must be at least 1 when rate limiting is enabled")
		}
	}
	if settings.Fixture.Enabled && settings.Fixture.Path == "" {
		errs = append(errs, "fixture engine path is required")
	}
	if settings.StatusCacheTTL < 0 {
		errs = append(errs, "engine status cache TTL must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("detection settings errors: %v", errs)
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.Broker == "" {
		return fmt.Errorf("MQTT is enabled but no broker is configured")
	}
	u, err := url.Parse(settings.Broker)
	if err != nil {
		return fmt.Errorf("invalid MQTT broker URL: %w", err)
	}
	switch u.Scheme {
	case "tcp", "ssl", "mqtt", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("unsupported MQTT broker scheme '%s'", u.Scheme)
	}
	if settings.Topic == "" {
		return fmt.Errorf("MQTT topic is required")
	}
	if settings.QoS > 2 {
		return fmt.Errorf("MQTT QoS must be 0, 1 or 2")
	}
	return nil
}

func validateNotificationSettings(settings *NotificationSettings) error {
	if !settings.Enabled {
		return nil
	}
	if len(settings.URLs) == 0 {
		return fmt.Errorf("notifications are enabled but no URLs are configured")
	}
	if settings.MinCritical < 1 {
		return fmt.Errorf("notification critical threshold must be at least 1")
	}
	return nil
}

func validatePort(port string) error {
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port '%s'", port)
	}
	if p < 1 || p > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", p)
	}
	return nil
}
