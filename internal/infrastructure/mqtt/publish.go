package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publish sends payload to topic and waits for the broker to acknowledge it
// at the requested QoS. Goal positions and hand commands are published with
// retained=false; only presence messages are retained.
//
//	topic := client.Topics().ChannelCommand("head_z")
//	err := client.Publish(topic, []byte(`{"goal_position":12.5}`), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes to %s (max %d)", ErrPayloadTooLarge, len(payload), topic, maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed, topic)
}

// publishPresence announces the service state on the system status topic.
// Failures are only logged: presence is advisory.
func (c *Client) publishPresence(status, reason string) {
	topic := c.topics.SystemStatus()
	payload := presencePayload(status, c.cfg.Broker.ClientID, reason)
	if err := await(c.client.Publish(topic, c.QoS(), true, payload), ErrPublishFailed, topic); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("presence publish failed", "status", status, "error", err)
		}
	}
}

// validate checks arguments shared by Publish and Subscribe.
func validate(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return fmt.Errorf("%w: got %d", ErrInvalidQoS, qos)
	}
	return nil
}

// await blocks until the broker completes token or ackTimeout elapses, and
// wraps any failure in kind.
func await(token pahomqtt.Token, kind error, topic string) error {
	if !token.WaitTimeout(ackTimeout) {
		return fmt.Errorf("%w: %s: no ack after %v", kind, topic, ackTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", kind, topic, err)
	}
	return nil
}
