package actuator

import (
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the subscriber.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Subscriber is the part of the message bus the subscriber needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	Unsubscribe(topic string) error
}

// StatusTopics maps a channel name to its status topic.
type StatusTopics interface {
	ChannelStatus(channel string) string
}

// StatusRecorder receives every accepted status, for telemetry.
type StatusRecorder interface {
	WriteActuatorStatus(channel string, compliant bool, offset, maxLoad float64)
}

// Broadcaster receives every accepted status, for live clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// BroadcastChannel is the event name used for status broadcasts.
const BroadcastChannel = "actuator.status"

// StatusSubscriber feeds status events from the bus into a Cache.
type StatusSubscriber struct {
	cache  *Cache
	bus    Subscriber
	topics StatusTopics
	qos    byte
	logger Logger

	recorder StatusRecorder
	hub      Broadcaster

	mu         sync.Mutex
	subscribed []string
}

// NewStatusSubscriber creates a subscriber that writes into cache.
func NewStatusSubscriber(cache *Cache, bus Subscriber, topics StatusTopics, qos byte, logger Logger) *StatusSubscriber {
	if logger == nil {
		logger = noopLogger{}
	}
	return &StatusSubscriber{
		cache:  cache,
		bus:    bus,
		topics: topics,
		qos:    qos,
		logger: logger,
	}
}

// SetRecorder sets an optional telemetry sink. Call before Start.
func (s *StatusSubscriber) SetRecorder(r StatusRecorder) {
	s.recorder = r
}

// SetBroadcaster sets an optional live-event sink. Call before Start.
func (s *StatusSubscriber) SetBroadcaster(b Broadcaster) {
	s.hub = b
}

// Start subscribes to the status topic of every channel. If any
// subscription fails, the ones already made are removed.
func (s *StatusSubscriber) Start(channels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range channels {
		if ch == "" {
			s.unsubscribeLocked() //nolint:errcheck // Best effort rollback
			return fmt.Errorf("%w: empty name", ErrInvalidChannel)
		}
		topic := s.topics.ChannelStatus(ch)
		if err := s.bus.Subscribe(topic, s.qos, s.handler(ch)); err != nil {
			s.unsubscribeLocked() //nolint:errcheck // Best effort rollback
			return fmt.Errorf("subscribing to %s status: %w", ch, err)
		}
		s.subscribed = append(s.subscribed, topic)
	}

	s.logger.Info("actuator status subscriptions active", "channels", len(channels))
	return nil
}

// Stop removes all subscriptions made by Start.
func (s *StatusSubscriber) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribeLocked()
}

func (s *StatusSubscriber) unsubscribeLocked() error {
	if len(s.subscribed) == 0 {
		return nil
	}
	var firstErr error
	for _, topic := range s.subscribed {
		if err := s.bus.Unsubscribe(topic); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unsubscribing %s: %w", topic, err)
		}
	}
	s.subscribed = nil
	return firstErr
}

func (s *StatusSubscriber) handler(channel string) func(string, []byte) error {
	return func(_ string, payload []byte) error {
		s.HandleStatus(channel, payload) //nolint:errcheck // Logged in HandleStatus
		return nil
	}
}

// HandleStatus decodes one status event and stores it. Invalid events are
// logged and dropped; the previous status for the channel is kept.
func (s *StatusSubscriber) HandleStatus(channel string, payload []byte) error {
	status, err := DecodeStatus(payload)
	if err != nil {
		s.logger.Warn("dropping actuator status", "channel", channel, "error", err)
		return err
	}
	if err := s.cache.Observe(channel, status); err != nil {
		return err
	}

	if s.recorder != nil {
		s.recorder.WriteActuatorStatus(channel, status.Compliant, status.Offset, status.MaxLoad)
	}
	if s.hub != nil {
		s.hub.Broadcast(BroadcastChannel, map[string]any{
			"channel":   channel,
			"compliant": status.Compliant,
			"direction": int(status.Direction),
			"offset":    status.Offset,
			"max_load":  status.MaxLoad,
		})
	}
	return nil
}
