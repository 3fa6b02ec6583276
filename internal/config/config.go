package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Telemetry source names accepted by TELEMETRY_SOURCE.
const (
	SourceSerial = "serial"
	SourceSim    = "sim"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDDashboard string
	MQTTClientIDConsole   string
	MQTTClientIDDisplay   string

	// Topics
	TopicTelemetry string // retained JSON state, written by the dashboard
	TopicRoute     string // route reload requests
	TopicCommand   string // alert / battery / gear commands

	// Source selection
	TelemetrySource string // "serial" or "sim"

	// GPS (baud rate is fixed at 9600 by the NMEA hardware)
	GPSSerialPort      string
	HeadingMinSpeedKmh float64
	GPSRetryInterval   int // seconds, 0 disables reopen attempts

	// Simulator
	SimTickInterval int // milliseconds
	SimSpeedKmh     float64
	RouteFile       string // YAML route, built-in demo loop when empty

	// Publishing
	PublishInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Track log
	TrackLogPath     string // SQLite file, disabled when empty
	TrackLogInterval int    // milliseconds

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal() and Get().
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock for initialization,
//     read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional value filled in.
func Default() *Config {
	return &Config{
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDDashboard: "vehicle-telemetry-dashboard",
		MQTTClientIDConsole:   "vehicle-telemetry-console",
		MQTTClientIDDisplay:   "vehicle-telemetry-display",

		TopicTelemetry: "vehicle/telemetry",
		TopicRoute:     "vehicle/route",
		TopicCommand:   "vehicle/command",

		TelemetrySource: SourceSerial,

		GPSSerialPort:      "/dev/serial0",
		HeadingMinSpeedKmh: 3.0,
		GPSRetryInterval:   0,

		SimTickInterval: 50,
		SimSpeedKmh:     50,

		PublishInterval: 200,
		WebServerPort:   8080,

		TrackLogInterval: 1000,

		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default().
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_DASHBOARD":
		c.MQTTClientIDDashboard = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_TELEMETRY":
		c.TopicTelemetry = value
	case "TOPIC_ROUTE":
		c.TopicRoute = value
	case "TOPIC_COMMAND":
		c.TopicCommand = value

	// Source selection
	case "TELEMETRY_SOURCE":
		src := strings.ToLower(value)
		if src != SourceSerial && src != SourceSim {
			return fmt.Errorf("TELEMETRY_SOURCE must be %q or %q, got %q", SourceSerial, SourceSim, value)
		}
		c.TelemetrySource = src

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "HEADING_MIN_SPEED_KMH":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid HEADING_MIN_SPEED_KMH %q: %w", value, err)
		}
		if v <= 0 {
			return fmt.Errorf("HEADING_MIN_SPEED_KMH must be > 0, got %v", v)
		}
		c.HeadingMinSpeedKmh = v
	case "GPS_RETRY_INTERVAL":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_RETRY_INTERVAL %q: %w", value, err)
		}
		if v < 0 {
			return fmt.Errorf("GPS_RETRY_INTERVAL must be >= 0, got %d", v)
		}
		c.GPSRetryInterval = v

	// Simulator
	case "SIM_TICK_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SIM_TICK_INTERVAL %q: %w", value, err)
		}
		c.SimTickInterval = interval
	case "SIM_SPEED_KMH":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SIM_SPEED_KMH %q: %w", value, err)
		}
		c.SimSpeedKmh = v
	case "ROUTE_FILE":
		c.RouteFile = value

	// Publishing
	case "PUBLISH_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PUBLISH_INTERVAL %q: %w", value, err)
		}
		c.PublishInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Track log
	case "TRACKLOG_PATH":
		c.TrackLogPath = value
	case "TRACKLOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TRACKLOG_INTERVAL %q: %w", value, err)
		}
		c.TrackLogInterval = interval

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicTelemetry == "" {
		return fmt.Errorf("TOPIC_TELEMETRY is required")
	}
	if c.TelemetrySource == SourceSerial && c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required for the serial source")
	}
	if c.SimTickInterval <= 0 {
		return fmt.Errorf("SIM_TICK_INTERVAL must be > 0")
	}
	if c.SimSpeedKmh <= 0 {
		return fmt.Errorf("SIM_SPEED_KMH must be > 0")
	}
	if c.PublishInterval <= 0 {
		return fmt.Errorf("PUBLISH_INTERVAL must be > 0")
	}
	if c.TrackLogPath != "" && c.TrackLogInterval <= 0 {
		return fmt.Errorf("TRACKLOG_INTERVAL must be > 0 when TRACKLOG_PATH is set")
	}
	return nil
}

// SimTick returns SimTickInterval as a duration.
func (c *Config) SimTick() time.Duration {
	return time.Duration(c.SimTickInterval) * time.Millisecond
}

// Publish returns PublishInterval as a duration.
func (c *Config) Publish() time.Duration {
	return time.Duration(c.PublishInterval) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
