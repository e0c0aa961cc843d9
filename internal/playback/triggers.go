package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// triggerTimeout bounds the sequence load done on a trigger message.
const triggerTimeout = 10 * time.Second

// triggerQueueSize is how many trigger messages may wait for the worker.
const triggerQueueSize = 32

// ErrTriggerQueueFull is returned when a trigger arrives while the queue is full.
var ErrTriggerQueueFull = errors.New("playback: trigger queue full")

type triggerMsg struct {
	handle  func(topic string, payload []byte) error
	topic   string
	payload []byte
}

// Subscriber is the part of the message bus needed for trigger topics.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
}

// TriggerTopics names the topics that start and stop playback.
type TriggerTopics interface {
	PlayTrigger() string
	StopTrigger() string
}

// PlayRequest is the JSON form of a play trigger. A bare sequence ID is
// also accepted.
type PlayRequest struct {
	Sequence  string  `json:"sequence"`
	Speed     float64 `json:"speed,omitempty"`
	Backwards bool    `json:"backwards,omitempty"`
}

// ParsePlayRequest decodes a play trigger payload.
//
// Examples:
//
//	wave
//	{"sequence":"wave","speed":1.5,"backwards":true}
func ParsePlayRequest(payload []byte) (PlayRequest, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return PlayRequest{}, errors.New("empty play trigger")
	}

	if trimmed[0] != '{' {
		return PlayRequest{Sequence: unquote(string(trimmed))}, nil
	}

	var req PlayRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return PlayRequest{}, fmt.Errorf("decoding play trigger: %w", err)
	}
	req.Sequence = strings.TrimSpace(req.Sequence)
	if req.Sequence == "" {
		return PlayRequest{}, errors.New("play trigger has no sequence")
	}
	return req, nil
}

// unquote strips one pair of surrounding double quotes, so a JSON string
// payload works like a bare ID.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// Options converts the request into playback options.
func (r PlayRequest) Options() Options {
	return Options{Speed: r.Speed, Backwards: r.Backwards}
}

// SubscribeTriggers registers the play and stop trigger handlers on bus.
//
// Bus callbacks only enqueue. One worker, stopped by Close, handles the
// triggers in arrival order, so the bus dispatch goroutine never waits on a
// sequence load or an event publish.
func (c *Controller) SubscribeTriggers(bus Subscriber, topics TriggerTopics, qos byte) error {
	queue := make(chan triggerMsg, triggerQueueSize)
	if err := bus.Subscribe(topics.PlayTrigger(), qos, c.enqueueTrigger(queue, c.HandlePlayTrigger)); err != nil {
		return fmt.Errorf("subscribing to play trigger: %w", err)
	}
	if err := bus.Subscribe(topics.StopTrigger(), qos, c.enqueueTrigger(queue, c.HandleStopTrigger)); err != nil {
		return fmt.Errorf("subscribing to stop trigger: %w", err)
	}
	go c.runTriggers(queue)

	c.logger.Info("playback triggers subscribed",
		"play", topics.PlayTrigger(),
		"stop", topics.StopTrigger(),
	)
	return nil
}

func (c *Controller) enqueueTrigger(queue chan<- triggerMsg, handle func(string, []byte) error) func(string, []byte) error {
	return func(topic string, payload []byte) error {
		msg := triggerMsg{handle: handle, topic: topic, payload: append([]byte(nil), payload...)}
		select {
		case queue <- msg:
			return nil
		default:
			c.logger.Warn("dropping trigger", "topic", topic, "error", ErrTriggerQueueFull)
			return ErrTriggerQueueFull
		}
	}
}

func (c *Controller) runTriggers(queue <-chan triggerMsg) {
	for {
		select {
		case <-c.baseCtx.Done():
			return
		case msg := <-queue:
			msg.handle(msg.topic, msg.payload) //nolint:errcheck // Handlers log their own errors
		}
	}
}

// HandlePlayTrigger starts the sequence named in payload.
func (c *Controller) HandlePlayTrigger(topic string, payload []byte) error {
	req, err := ParsePlayRequest(payload)
	if err != nil {
		c.logger.Warn("ignoring play trigger", "topic", topic, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
	defer cancel()

	run, err := c.Start(ctx, req.Sequence, req.Options(), TriggerMQTT)
	if err != nil {
		c.logger.Warn("play trigger rejected",
			"topic", topic,
			"sequence_id", req.Sequence,
			"error", err,
		)
		return err
	}
	c.logger.Info("play trigger accepted", "sequence_id", req.Sequence, "run_id", run.ID)
	return nil
}

// HandleStopTrigger stops the sequence named in payload.
func (c *Controller) HandleStopTrigger(topic string, payload []byte) error {
	id := strings.TrimSpace(string(payload))
	if strings.HasPrefix(id, "{") {
		req, err := ParsePlayRequest(payload)
		if err != nil {
			c.logger.Warn("ignoring stop trigger", "topic", topic, "error", err)
			return err
		}
		id = req.Sequence
	} else {
		id = unquote(id)
	}
	if id == "" {
		return errors.New("empty stop trigger")
	}

	if _, err := c.Stop(id); err != nil {
		c.logger.Debug("stop trigger for idle sequence", "sequence_id", id)
		return err
	}
	return nil
}
