package mqtt

import (
	"testing"

	"github.com/nerrad567/poppy-motion/internal/infrastructure/config"
)

func TestTopicBuilders(t *testing.T) {
	topics := DefaultTopics()

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"ChannelCommand", topics.ChannelCommand("l_shoulder_y"), "poppy/set/l_shoulder_y"},
		{"ChannelStatus", topics.ChannelStatus("l_shoulder_y"), "poppy/get/l_shoulder_y"},
		{"HandCommand", topics.HandCommand(), "servo/cmd"},
		{"PlayTrigger", topics.PlayTrigger(), "Word"},
		{"StopTrigger", topics.StopTrigger(), "Word/stop"},
		{"PlaybackEvent", topics.PlaybackEvent("wave", "started"), "poppy/playback/wave/started"},
		{"SystemStatus", topics.SystemStatus(), "poppy/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestNewTopics_TrimsTrailingSlash(t *testing.T) {
	topics := NewTopics(config.MQTTTopicsConfig{
		CommandPrefix: "robot/cmd/",
		StatusPrefix:  "robot/state/",
		Events:        "robot/events/",
	})

	if got := topics.ChannelCommand("head_z"); got != "robot/cmd/head_z" {
		t.Errorf("ChannelCommand() = %q, want %q", got, "robot/cmd/head_z")
	}
	if got := topics.ChannelStatus("head_z"); got != "robot/state/head_z" {
		t.Errorf("ChannelStatus() = %q, want %q", got, "robot/state/head_z")
	}
	if got := topics.PlaybackEvent("wave", "finished"); got != "robot/events/wave/finished" {
		t.Errorf("PlaybackEvent() = %q, want %q", got, "robot/events/wave/finished")
	}
}
