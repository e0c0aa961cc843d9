package mqtt

import (
	"strings"

	"github.com/nerrad567/poppy-motion/internal/infrastructure/config"
)

// Topics provides builders for the robot's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// The zero value is not useful; build one from configuration:
//
//	topics := mqtt.NewTopics(cfg.MQTT.Topics)
//	topics.ChannelCommand("l_shoulder_y")
//	// Returns: "poppy/set/l_shoulder_y"
type Topics struct {
	cfg config.MQTTTopicsConfig
}

// NewTopics returns topic builders for the given topic configuration.
// Trailing slashes on prefixes are ignored.
func NewTopics(cfg config.MQTTTopicsConfig) Topics {
	cfg.CommandPrefix = strings.TrimRight(cfg.CommandPrefix, "/")
	cfg.StatusPrefix = strings.TrimRight(cfg.StatusPrefix, "/")
	cfg.Events = strings.TrimRight(cfg.Events, "/")
	return Topics{cfg: cfg}
}

// DefaultTopics returns the builders for the built-in topic layout.
func DefaultTopics() Topics {
	return NewTopics(config.Default().MQTT.Topics)
}

// =============================================================================
// Actuator Topics
// =============================================================================

// ChannelCommand returns the command topic for one actuator.
//
// Example: poppy/set/l_shoulder_y
func (t Topics) ChannelCommand(channel string) string {
	return t.cfg.CommandPrefix + "/" + channel
}

// ChannelStatus returns the status topic for one actuator.
//
// Example: poppy/get/l_shoulder_y
func (t Topics) ChannelStatus(channel string) string {
	return t.cfg.StatusPrefix + "/" + channel
}

// HandCommand returns the shared topic for the hand servo pair.
//
// Example: servo/cmd
func (t Topics) HandCommand() string {
	return t.cfg.HandCommand
}

// =============================================================================
// Playback Topics
// =============================================================================

// PlayTrigger returns the topic carrying playback start requests.
//
// Example: Word
func (t Topics) PlayTrigger() string {
	return t.cfg.PlayTrigger
}

// StopTrigger returns the topic carrying playback stop requests.
//
// Example: Word/stop
func (t Topics) StopTrigger() string {
	return t.cfg.StopTrigger
}

// PlaybackEvent returns the topic for a playback lifecycle event.
//
// Example: poppy/playback/wave/started
func (t Topics) PlaybackEvent(sequenceID, event string) string {
	return t.cfg.Events + "/" + sequenceID + "/" + event
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the service status topic (online, offline, LWT).
//
// Example: poppy/system/status
func (t Topics) SystemStatus() string {
	return t.cfg.SystemStatus
}
