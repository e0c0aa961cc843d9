package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/poppy-motion/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second

	// ackTimeout bounds every publish, subscribe and unsubscribe round trip.
	// It must stay well below one frame at the slowest supported rate or a
	// stalled broker would hold a frame indefinitely.
	ackTimeout = 5 * time.Second

	// quiesceMillis lets in-flight goal positions drain on Close.
	quiesceMillis = 500

	// The broker is usually on the robot itself, so dead links are
	// detected faster than on a WAN.
	keepAlive = 30 * time.Second
	pingWait  = 10 * time.Second

	maxQoS = 2

	// maxPayloadSize caps a single message. A goal position is a few dozen
	// bytes; the cap exists for trigger payloads from untrusted publishers.
	maxPayloadSize = 1 << 20

	tlsMinVersion = tls.VersionTLS12
)

// brokerURL renders the broker address for paho.
func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

// buildClientOptions maps MQTTConfig onto paho options. Sessions are clean
// because subscriptions are replayed by the client itself on reconnect.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetPingTimeout(pingWait).
		SetWriteTimeout(ackTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	return opts
}

// Presence reasons carried on the system status topic.
const (
	reasonUnexpected = "unexpected_disconnect"
	reasonShutdown   = "graceful_shutdown"
)

// presence is the retained message announcing whether the playback service
// is reachable. The broker publishes the offline form as the Last Will.
type presence struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func presencePayload(status, clientID, reason string) []byte {
	// Marshal of a flat struct of strings cannot fail.
	b, _ := json.Marshal(presence{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}

// configureLWT registers the retained offline message the broker sends when
// the connection drops without a DISCONNECT.
func configureLWT(opts *pahomqtt.ClientOptions, willTopic, clientID string) {
	opts.SetBinaryWill(willTopic, presencePayload("offline", clientID, reasonUnexpected), 1, true)
}
