package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/benmeehan/tracking-agent/internal/constants"
	"github.com/benmeehan/tracking-agent/internal/scheduler"
	"github.com/benmeehan/tracking-agent/pkg/file"
	"github.com/benmeehan/tracking-agent/pkg/location"
	"github.com/rs/zerolog"
)

// Config represents the structure of the configuration file.
type Config struct {
	ConfigVersion string `yaml:"config_version"` // Semantic version of the configuration layout

	Logging struct {
		Level string `yaml:"level"` // zerolog level name (debug, info, warn, error)
	} `yaml:"logging"`

	Tracking struct {
		Period                 time.Duration `yaml:"period"`                   // Interval between tracking cycles
		Flex                   time.Duration `yaml:"flex"`                     // Window at the end of each period in which the cycle may run
		RequireNetwork         bool          `yaml:"require_network"`          // Only run while a network interface is connected
		ConstraintPollInterval time.Duration `yaml:"constraint_poll_interval"` // How often unmet constraints are re-checked
		RequestTimeout         time.Duration `yaml:"request_timeout"`          // Timeout for one location report request
		Priority               string        `yaml:"priority"`                 // Fresh fix priority (high_accuracy, balanced, low_power)

		Backoff struct {
			Policy       string        `yaml:"policy"`        // linear, exponential or none
			InitialDelay time.Duration `yaml:"initial_delay"` // Delay before the first retry
			MaxDelay     time.Duration `yaml:"max_delay"`     // Upper bound for retry delays
		} `yaml:"backoff"`
	} `yaml:"tracking"`

	Credentials struct {
		File           string `yaml:"file"`             // Path to the credentials file written by the host application
		DefaultBaseURL string `yaml:"default_base_url"` // Base URL used when the credentials file has none
	} `yaml:"credentials"`

	Location struct {
		FixTimeout      time.Duration `yaml:"fix_timeout"`        // Maximum wait for a fresh fix
		MaxLastKnownAge time.Duration `yaml:"max_last_known_age"` // Oldest fix still served as last known

		Sensor struct {
			Enabled     bool          `yaml:"enabled"`      // Use a serial NMEA GPS receiver
			DevicePort  string        `yaml:"device_port"`  // UNIX port where the GPS sensor is mounted
			BaudRate    int           `yaml:"baud_rate"`    // The baud rate for the GPS sensor
			ReadTimeout time.Duration `yaml:"read_timeout"` // Serial read timeout
		} `yaml:"sensor"`

		Geolocation struct {
			Enabled    bool   `yaml:"enabled"`      // Use the Google geolocation API
			MapsAPIKey string `yaml:"maps_api_key"` // Google maps API key
			ScanWiFi   bool   `yaml:"scan_wifi"`    // Include nearby access points from nmcli
			ModemIndex int    `yaml:"modem_index"`  // ModemManager index for cell towers, -1 disables
		} `yaml:"geolocation"`
	} `yaml:"location"`

	Status struct {
		Title string `yaml:"title"` // Status notice title
		Body  string `yaml:"body"`  // Status notice body

		MQTT struct {
			Enabled        bool          `yaml:"enabled"`         // Publish status notices over MQTT
			Broker         string        `yaml:"broker"`          // MQTT broker address
			ClientID       string        `yaml:"client_id"`       // MQTT client ID prefix
			Username       string        `yaml:"username"`        // MQTT username
			Password       string        `yaml:"password"`        // MQTT password
			CACertificate  string        `yaml:"ca_certificate"`  // Path to the CA certificate
			Topic          string        `yaml:"topic"`           // MQTT topic for status notices
			QOS            int           `yaml:"qos"`             // MQTT QoS level for status notices
			PublishTimeout time.Duration `yaml:"publish_timeout"` // Timeout for one publish

			HeartbeatTopic    string        `yaml:"heartbeat_topic"`    // MQTT topic for heartbeats, empty disables
			HeartbeatInterval time.Duration `yaml:"heartbeat_interval"` // Interval between heartbeats
		} `yaml:"mqtt"`
	} `yaml:"status"`
}

// LoadConfig loads the YAML configuration from the specified file, fills in
// defaults and validates the result.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.Decode(filename, &config); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", filename, err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.ConfigVersion == "" {
		c.ConfigVersion = constants.AgentVersion
	}
	if c.Logging.Level == "" {
		c.Logging.Level = zerolog.InfoLevel.String()
	}

	t := &c.Tracking
	if t.Period == 0 {
		t.Period = constants.DefaultTrackingPeriod
	}
	if t.Flex == 0 {
		t.Flex = min(constants.DefaultTrackingFlex, t.Period)
	}
	if t.ConstraintPollInterval == 0 {
		t.ConstraintPollInterval = constants.DefaultConstraintPollInterval
	}
	if t.RequestTimeout == 0 {
		t.RequestTimeout = constants.DefaultRequestTimeout
	}
	if t.Backoff.InitialDelay == 0 {
		t.Backoff.InitialDelay = constants.DefaultBackoffDelay
	}
	if t.Backoff.MaxDelay == 0 {
		t.Backoff.MaxDelay = constants.DefaultMaxBackoff
	}

	if c.Location.FixTimeout == 0 {
		c.Location.FixTimeout = constants.DefaultFixTimeout
	}
	if c.Location.MaxLastKnownAge == 0 {
		c.Location.MaxLastKnownAge = constants.DefaultMaxLastKnownAge
	}
	if c.Location.Sensor.BaudRate == 0 {
		c.Location.Sensor.BaudRate = 9600
	}
	if c.Location.Sensor.ReadTimeout == 0 {
		c.Location.Sensor.ReadTimeout = 5 * time.Second
	}

	if c.Status.Title == "" {
		c.Status.Title = constants.StatusTitle
	}
	if c.Status.Body == "" {
		c.Status.Body = constants.StatusBody
	}
	if c.Status.MQTT.ClientID == "" {
		c.Status.MQTT.ClientID = "tracking-agent"
	}
	if c.Status.MQTT.PublishTimeout == 0 {
		c.Status.MQTT.PublishTimeout = 10 * time.Second
	}
	if c.Status.MQTT.HeartbeatInterval == 0 {
		c.Status.MQTT.HeartbeatInterval = time.Minute
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	version, err := semver.NewVersion(c.ConfigVersion)
	if err != nil {
		return fmt.Errorf("config_version %q: %w", c.ConfigVersion, err)
	}
	supported, err := semver.NewConstraint(constants.SupportedConfigVersions)
	if err != nil {
		return err
	}
	if !supported.Check(version) {
		return fmt.Errorf("config_version %s does not satisfy %s", version, constants.SupportedConfigVersions)
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	t := c.Tracking
	if t.Period <= 0 {
		return errors.New("tracking.period must be positive")
	}
	if t.Flex < 0 || t.Flex > t.Period {
		return errors.New("tracking.flex must be between 0 and tracking.period")
	}
	if t.ConstraintPollInterval <= 0 {
		return errors.New("tracking.constraint_poll_interval must be positive")
	}
	if _, err := scheduler.ParseBackoffKind(t.Backoff.Policy); err != nil {
		return fmt.Errorf("tracking.backoff.policy: %w", err)
	}
	if t.Backoff.MaxDelay < t.Backoff.InitialDelay {
		return errors.New("tracking.backoff.max_delay must not be below initial_delay")
	}
	if _, ok := location.ParsePriority(t.Priority); !ok {
		return fmt.Errorf("tracking.priority: unknown priority %q", t.Priority)
	}

	l := c.Location
	if !l.Sensor.Enabled && !l.Geolocation.Enabled {
		return errors.New("at least one location provider must be enabled")
	}
	if l.Sensor.Enabled && l.Sensor.DevicePort == "" {
		return errors.New("location.sensor.device_port is required when the sensor is enabled")
	}
	if l.Geolocation.Enabled && l.Geolocation.MapsAPIKey == "" {
		return errors.New("location.geolocation.maps_api_key is required when geolocation is enabled")
	}

	m := c.Status.MQTT
	if m.Enabled {
		if m.Broker == "" || m.Topic == "" {
			return errors.New("status.mqtt.broker and status.mqtt.topic are required when MQTT is enabled")
		}
		if m.QOS < 0 || m.QOS > 2 {
			return fmt.Errorf("status.mqtt.qos %d out of range", m.QOS)
		}
		if m.HeartbeatTopic != "" && m.HeartbeatInterval <= 0 {
			return errors.New("status.mqtt.heartbeat_interval must be positive when heartbeat_topic is set")
		}
	}
	return nil
}

// Backoff returns the scheduler retry policy described by the tracking section.
func (c *Config) Backoff() scheduler.BackoffPolicy {
	kind, _ := scheduler.ParseBackoffKind(c.Tracking.Backoff.Policy)
	return scheduler.BackoffPolicy{
		Kind:         kind,
		InitialDelay: c.Tracking.Backoff.InitialDelay,
		MaxDelay:     c.Tracking.Backoff.MaxDelay,
	}
}

// Priority returns the configured fresh fix priority.
func (c *Config) Priority() location.Priority {
	priority, _ := location.ParsePriority(c.Tracking.Priority)
	return priority
}
