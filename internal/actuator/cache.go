package actuator

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Cache holds the latest observed Status per channel.
//
// Statuses are stored by value, so a reader always sees a complete Status
// from one Observe call. Last write wins per channel; there is no ordering
// between channels.
//
// All methods are safe for concurrent use.
type Cache struct {
	mu       sync.RWMutex
	statuses map[string]Status
	now      func() time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		statuses: make(map[string]Status),
		now:      time.Now,
	}
}

// Observe records status as the channel's current status. ObservedAt is
// stamped with the current time when unset.
func (c *Cache) Observe(channel string, status Status) error {
	if channel == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidChannel)
	}
	if status.ObservedAt.IsZero() {
		status.ObservedAt = c.now().UTC()
	}

	c.mu.Lock()
	c.statuses[channel] = status
	c.mu.Unlock()
	return nil
}

// Current returns the channel's latest status, or ErrNoStatus if the
// channel has never been observed.
func (c *Cache) Current(channel string) (Status, error) {
	c.mu.RLock()
	status, ok := c.statuses[channel]
	c.mu.RUnlock()

	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrNoStatus, channel)
	}
	return status, nil
}

// Snapshot returns a copy of every observed status.
func (c *Cache) Snapshot() map[string]Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Status, len(c.statuses))
	for ch, s := range c.statuses {
		out[ch] = s
	}
	return out
}

// Channels returns the observed channel names, sorted.
func (c *Cache) Channels() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.statuses))
	for ch := range c.statuses {
		names = append(names, ch)
	}
	c.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of observed channels.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.statuses)
}
