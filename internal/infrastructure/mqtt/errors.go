package mqtt

import "errors"

// Sentinel errors returned by Client. Broker-side causes are wrapped with %w,
// so callers match with errors.Is.
var (
	// ErrNotConnected is returned while the broker link is down. The playback
	// engine treats it as a frame failure and aborts the run.
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	// ErrConnectionFailed is returned by Connect when the first dial fails.
	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	// ErrPublishFailed covers command publishes the broker did not acknowledge.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed covers both subscribe and unsubscribe failures.
	ErrSubscribeFailed = errors.New("mqtt: subscription failed")

	// ErrPayloadTooLarge is returned for payloads above maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")

	ErrInvalidQoS   = errors.New("mqtt: qos must be 0, 1, or 2")
	ErrInvalidTopic = errors.New("mqtt: empty topic")
)
