// Package mqtt publishes detection events to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/gridsight/thermalwatch/internal/conf"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends payload to topic. It fails when not connected.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string
	Retain            bool
	QoS               byte
	ReconnectCooldown time.Duration // minimum gap between manual connect attempts
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values.
func DefaultConfig() Config {
	return Config{
		ClientID:          "thermalwatch",
		Topic:             "thermalwatch/detections",
		QoS:               1,
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings maps settings onto DefaultConfig.
func ConfigFromSettings(settings *conf.Settings) Config {
	cfg := DefaultConfig()
	m := settings.MQTT

	cfg.Broker = m.Broker
	cfg.Username = m.Username
	cfg.Password = m.Password
	cfg.Retain = m.Retain
	cfg.QoS = m.QoS
	if m.ClientID != "" {
		cfg.ClientID = m.ClientID
	} else if settings.Main.Name != "" {
		cfg.ClientID = settings.Main.Name
	}
	if m.Topic != "" {
		cfg.Topic = m.Topic
	}
	if m.ConnectTimeout > 0 {
		cfg.ConnectTimeout = m.ConnectTimeout
	}
	if m.PublishTimeout > 0 {
		cfg.PublishTimeout = m.PublishTimeout
	}
	return cfg
}
