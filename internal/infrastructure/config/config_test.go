package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
robot:
  name: "poppy-test"
  channels: ["l_shoulder_y", "r_shoulder_y"]
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
  topics:
    play_trigger: "poppy/play"
api:
  host: "0.0.0.0"
  port: 8080
playback:
  source: "database"
  max_speed: 4
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Robot.Name != "poppy-test" {
		t.Errorf("Robot.Name = %q, want %q", cfg.Robot.Name, "poppy-test")
	}
	if len(cfg.Robot.Channels) != 2 || cfg.Robot.Channels[1] != "r_shoulder_y" {
		t.Errorf("Robot.Channels = %v, want [l_shoulder_y r_shoulder_y]", cfg.Robot.Channels)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.MQTT.Topics.PlayTrigger != "poppy/play" {
		t.Errorf("MQTT.Topics.PlayTrigger = %q, want %q", cfg.MQTT.Topics.PlayTrigger, "poppy/play")
	}
	// Unset topics keep their defaults.
	if cfg.MQTT.Topics.CommandPrefix != "poppy/set" {
		t.Errorf("MQTT.Topics.CommandPrefix = %q, want %q", cfg.MQTT.Topics.CommandPrefix, "poppy/set")
	}
	if cfg.Playback.Source != SourceDatabase {
		t.Errorf("Playback.Source = %q, want %q", cfg.Playback.Source, SourceDatabase)
	}
	if cfg.Playback.MaxSpeed != 4 {
		t.Errorf("Playback.MaxSpeed = %v, want 4", cfg.Playback.MaxSpeed)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
robot:
  channels: []
database:
  path: "/tmp/test.db"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty robot.channels, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:    "no channels",
			mutate:  func(c *Config) { c.Robot.Channels = nil },
			wantErr: "robot.channels",
		},
		{
			name:    "duplicate channel",
			mutate:  func(c *Config) { c.Robot.Channels = []string{"head_z", "head_z"} },
			wantErr: "duplicate channel",
		},
		{
			name:    "channel with topic separator",
			mutate:  func(c *Config) { c.Robot.Channels = []string{"head/z"} },
			wantErr: "invalid channel name",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "wildcard topic",
			mutate:  func(c *Config) { c.MQTT.Topics.PlayTrigger = "Word/#" },
			wantErr: "mqtt.topics.play_trigger",
		},
		{
			name:    "empty topic",
			mutate:  func(c *Config) { c.MQTT.Topics.HandCommand = "" },
			wantErr: "mqtt.topics.hand_command",
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name: "port ignored when api disabled",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
		},
		{
			name:    "unknown log output",
			mutate:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: "logging.output",
		},
		{
			name: "file log output without path",
			mutate: func(c *Config) {
				c.Logging.Output = "file"
				c.Logging.File.Path = ""
			},
			wantErr: "logging.file.path",
		},
		{
			name:    "unknown playback source",
			mutate:  func(c *Config) { c.Playback.Source = "s3" },
			wantErr: "playback.source",
		},
		{
			name:    "file source without directory",
			mutate:  func(c *Config) { c.Playback.Directory = "" },
			wantErr: "playback.directory",
		},
		{
			name: "database source without directory",
			mutate: func(c *Config) {
				c.Playback.Source = SourceDatabase
				c.Playback.Directory = ""
			},
		},
		{
			name:    "zero max speed",
			mutate:  func(c *Config) { c.Playback.MaxSpeed = 0 },
			wantErr: "playback.max_speed",
		},
		{
			name:    "zero history limit",
			mutate:  func(c *Config) { c.Playback.HistoryLimit = 0 },
			wantErr: "playback.history_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.Path = ""
	cfg.MQTT.QoS = 5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	for _, want := range []string{"database.path", "mqtt.qos"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, want it to mention %q", err, want)
		}
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("POPPYMOTION_DATABASE_PATH", "/custom/path.db")
	t.Setenv("POPPYMOTION_MQTT_HOST", "mqtt.example.com")
	t.Setenv("POPPYMOTION_MQTT_USERNAME", "testuser")
	t.Setenv("POPPYMOTION_MQTT_PASSWORD", "testpass")
	t.Setenv("POPPYMOTION_API_HOST", "192.168.1.1")
	t.Setenv("POPPYMOTION_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("POPPYMOTION_PLAYBACK_DIRECTORY", "/srv/recordings")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Playback.Directory != "/srv/recordings" {
		t.Errorf("Playback.Directory = %q, want %q", cfg.Playback.Directory, "/srv/recordings")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}
	if len(cfg.Robot.Channels) != len(DefaultChannels) {
		t.Errorf("defaultConfig Robot.Channels has %d entries, want %d", len(cfg.Robot.Channels), len(DefaultChannels))
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 6969 {
		t.Errorf("defaultConfig API.Port = %d, want 6969", cfg.API.Port)
	}
	if cfg.MQTT.Topics.HandCommand != "servo/cmd" {
		t.Errorf("defaultConfig MQTT.Topics.HandCommand = %q, want %q", cfg.MQTT.Topics.HandCommand, "servo/cmd")
	}

	// The channel list is a copy, so callers may mutate it.
	cfg.Robot.Channels[0] = "changed"
	if DefaultChannels[0] == "changed" {
		t.Error("defaultConfig must not share DefaultChannels backing array")
	}
}
