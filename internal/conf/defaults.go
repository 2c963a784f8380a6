package conf

import (
	"time"

	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/spf13/viper"
)

// setDefaultConfig registers default values with viper.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "thermalwatch")
	viper.SetDefault("main.datadir", "data")

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.max_size", logger.DefaultMaxSize)
	viper.SetDefault("logging.file_output.max_rotated_files", logger.DefaultMaxRotatedFiles)

	viper.SetDefault("database.type", DatabaseSQLite)
	viper.SetDefault("database.slowquerythreshold", 200*time.Millisecond)
	viper.SetDefault("database.sqlite.path", "thermalwatch.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")
	viper.SetDefault("database.mysql.database", "thermalwatch")
	viper.SetDefault("database.postgres.host", "localhost")
	viper.SetDefault("database.postgres.port", "5432")
	viper.SetDefault("database.postgres.database", "thermalwatch")
	viper.SetDefault("database.postgres.sslmode", "disable")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.host", "")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.bodylimit", "10M")
	viper.SetDefault("webserver.allowedorigins", []string{"*"})
	viper.SetDefault("webserver.shutdowntimeout", 10*time.Second)

	viper.SetDefault("detection.defaultengine", "")
	viper.SetDefault("detection.statuscachettl", 30*time.Second)
	viper.SetDefault("detection.seedannotations", true)
	viper.SetDefault("detection.huggingface.enabled", true)
	viper.SetDefault("detection.huggingface.baseurl", "https://Senum-anomaly-detection-api.hf.space")
	viper.SetDefault("detection.huggingface.timeout", 60*time.Second)
	viper.SetDefault("detection.huggingface.ratelimit", 2.0)
	viper.SetDefault("detection.huggingface.burst", 4)
	viper.SetDefault("detection.fixture.enabled", false)
	viper.SetDefault("detection.fixture.path", "fixtures/detections.yaml")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.topic", "thermalwatch/detections")
	viper.SetDefault("mqtt.retain", false)
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.connecttimeout", 10*time.Second)
	viper.SetDefault("mqtt.publishtimeout", 5*time.Second)

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.urls", []string{})
	viper.SetDefault("notification.timeout", 10*time.Second)
	viper.SetDefault("notification.mincritical", 1)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}
