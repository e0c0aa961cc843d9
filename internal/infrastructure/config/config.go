package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Poppy Motion Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Robot     RobotConfig     `yaml:"robot"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Playback  PlaybackConfig  `yaml:"playback"`
}

// RobotConfig describes the robot whose actuators are driven.
type RobotConfig struct {
	Name string `yaml:"name"`

	// Channels lists every actuator whose status is tracked.
	// Each channel gets a status subscription and a command topic.
	Channels []string `yaml:"channels"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// MQTTTopicsConfig names the topics of the robot's message graph.
// Defaults mirror the ROS graph the recordings were made against.
type MQTTTopicsConfig struct {
	// CommandPrefix is joined with a channel name: poppy/set/l_shoulder_y
	CommandPrefix string `yaml:"command_prefix"`

	// StatusPrefix is joined with a channel name: poppy/get/l_shoulder_y
	StatusPrefix string `yaml:"status_prefix"`

	// HandCommand is the shared topic for the two-channel hand servo bus.
	HandCommand string `yaml:"hand_command"`

	// PlayTrigger carries "start playback of sequence X" requests.
	PlayTrigger string `yaml:"play_trigger"`

	// StopTrigger carries "stop playback of sequence X" requests.
	StopTrigger string `yaml:"stop_trigger"`

	// Events is the prefix for playback lifecycle events.
	Events string `yaml:"events"`

	// SystemStatus carries online/offline status and the Last Will.
	SystemStatus string `yaml:"system_status"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// Used when Output is "file"; sizes are megabytes, ages are days.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// PlaybackConfig contains recorded-motion playback settings.
type PlaybackConfig struct {
	// Source selects the sequence store: "file" or "database".
	Source string `yaml:"source"`

	// Directory holds <sequence>.json documents when Source is "file".
	Directory string `yaml:"directory"`

	// MaxSpeed bounds the speed scalar accepted by triggers.
	MaxSpeed float64 `yaml:"max_speed"`

	// RecordRuns persists every playback run to the database.
	RecordRuns bool `yaml:"record_runs"`

	// HistoryLimit caps the number of runs returned by history queries.
	HistoryLimit int `yaml:"history_limit"`
}

// Sequence sources.
const (
	SourceFile     = "file"
	SourceDatabase = "database"
)

// DefaultChannels are the torso and arm actuators of the Poppy humanoid.
var DefaultChannels = []string{
	"abs_z", "bust_y", "bust_x", "head_z", "head_y",
	"l_shoulder_y", "l_shoulder_x", "l_arm_z", "l_elbow_y", "l_forearm_z",
	"r_shoulder_y", "r_shoulder_x", "r_arm_z", "r_elbow_y", "r_forearm_z",
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: POPPYMOTION_SECTION_KEY
// For example: POPPYMOTION_DATABASE_PATH, POPPYMOTION_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Robot: RobotConfig{
			Name:     "poppy-torso",
			Channels: append([]string(nil), DefaultChannels...),
		},
		Database: DatabaseConfig{
			Path:        "./data/poppymotion.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "poppymotion",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			Topics: MQTTTopicsConfig{
				CommandPrefix: "poppy/set",
				StatusPrefix:  "poppy/get",
				HandCommand:   "servo/cmd",
				PlayTrigger:   "Word",
				StopTrigger:   "Word/stop",
				Events:        "poppy/playback",
				SystemStatus:  "poppy/system/status",
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    6969,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/poppymotion.log",
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     30,
			},
		},
		Playback: PlaybackConfig{
			Source:       SourceFile,
			Directory:    "./recordings",
			MaxSpeed:     10,
			RecordRuns:   true,
			HistoryLimit: 50,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: POPPYMOTION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POPPYMOTION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("POPPYMOTION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("POPPYMOTION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("POPPYMOTION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("POPPYMOTION_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("POPPYMOTION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("POPPYMOTION_PLAYBACK_DIRECTORY"); v != "" {
		cfg.Playback.Directory = v
	}
}

// Validate checks the configuration for errors.
// All problems are collected and reported together.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Robot.Channels) == 0 {
		errs = append(errs, "robot.channels must list at least one channel")
	}
	seen := make(map[string]struct{}, len(c.Robot.Channels))
	for _, ch := range c.Robot.Channels {
		if strings.TrimSpace(ch) == "" || strings.ContainsAny(ch, "/+#") {
			errs = append(errs, fmt.Sprintf("robot.channels: invalid channel name %q", ch))
			continue
		}
		if _, dup := seen[ch]; dup {
			errs = append(errs, fmt.Sprintf("robot.channels: duplicate channel %q", ch))
		}
		seen[ch] = struct{}{}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	t := c.MQTT.Topics
	for name, v := range map[string]string{
		"command_prefix": t.CommandPrefix,
		"status_prefix":  t.StatusPrefix,
		"hand_command":   t.HandCommand,
		"play_trigger":   t.PlayTrigger,
		"stop_trigger":   t.StopTrigger,
		"events":         t.Events,
		"system_status":  t.SystemStatus,
	} {
		if v == "" {
			errs = append(errs, "mqtt.topics."+name+" is required")
		} else if strings.ContainsAny(v, "+#") {
			errs = append(errs, "mqtt.topics."+name+" must not contain wildcards")
		}
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "", "stdout", "stderr":
	case "file":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required when logging.output is file")
		}
	default:
		errs = append(errs, "logging.output must be stdout, stderr, or file")
	}

	switch c.Playback.Source {
	case SourceFile:
		if c.Playback.Directory == "" {
			errs = append(errs, "playback.directory is required when playback.source is file")
		}
	case SourceDatabase:
	default:
		errs = append(errs, "playback.source must be file or database")
	}
	if c.Playback.MaxSpeed <= 0 || math.IsInf(c.Playback.MaxSpeed, 0) || math.IsNaN(c.Playback.MaxSpeed) {
		errs = append(errs, "playback.max_speed must be a positive number")
	}
	if c.Playback.HistoryLimit < 1 {
		errs = append(errs, "playback.history_limit must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
