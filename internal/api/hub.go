package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/poppy-motion/internal/infrastructure/config"
	"github.com/nerrad567/poppy-motion/internal/infrastructure/logging"
)

// Hub fans playback and actuator events out to WebSocket clients.
//
// Channels are dotted names such as "playback.frame" or "actuator.status".
// A subscription ending in ".*" matches every channel with that prefix.
// Delivery is best effort: a client whose buffer is full misses events
// rather than slowing the frame loop that publishes them.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex

	dropped atomic.Uint64
}

// NewHub creates a hub with no clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client and stops its writer. Calling it twice, or
// after Run has returned, is harmless.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	client.shutdown()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Broadcast encodes payload once and queues it for every client subscribed
// to channel. It never blocks.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		Channel:   channel,
		Timestamp: wsTimestamp(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("websocket event encoding failed", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	recipients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		if client.subscriptions.matches(channel) {
			recipients = append(recipients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		if !client.trySend(data) {
			h.dropped.Add(1)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded because a client's
// buffer was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for client := range clients {
		client.shutdown()
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// wsTimestamp keeps millisecond precision: frame events at 50 Hz are 20 ms
// apart.
func wsTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// channelSet is a client's subscription list.
type channelSet struct {
	mu       sync.RWMutex
	channels map[string]struct{}
}

func newChannelSet(channels ...string) *channelSet {
	s := &channelSet{channels: make(map[string]struct{})}
	s.add(channels)
	return s
}

func (s *channelSet) add(channels []string) {
	s.mu.Lock()
	for _, ch := range channels {
		if ch = strings.TrimSpace(ch); ch != "" {
			s.channels[ch] = struct{}{}
		}
	}
	s.mu.Unlock()
}

func (s *channelSet) remove(channels []string) {
	s.mu.Lock()
	for _, ch := range channels {
		delete(s.channels, strings.TrimSpace(ch))
	}
	s.mu.Unlock()
}

// matches reports whether channel is subscribed exactly or through a
// "prefix.*" pattern.
func (s *channelSet) matches(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.channels[channel]; ok {
		return true
	}
	for sub := range s.channels {
		if prefix, ok := strings.CutSuffix(sub, "*"); ok && strings.HasPrefix(channel, prefix) {
			return true
		}
	}
	return false
}
