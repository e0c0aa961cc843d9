package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the body of GET /api/v1/metrics. Sections for optional
// components are zero when the component is not wired.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Playback      PlaybackMetrics `json:"playback"`
	Actuators     ActuatorMetrics `json:"actuators"`
	Database      DatabaseMetrics `json:"database"`
}

type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
	LastGCPauseUS float64 `json:"last_gc_pause_us"`
}

type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	DroppedEvents    uint64 `json:"dropped_events"`
}

type MQTTMetrics struct {
	Connected     bool     `json:"connected"`
	Subscriptions []string `json:"subscriptions"`
}

// PlaybackMetrics lists the sequences playing right now.
type PlaybackMetrics struct {
	ActiveRuns int      `json:"active_runs"`
	Playing    []string `json:"playing"`
}

// ActuatorMetrics compares the configured channels with those whose driver
// has reported a status since startup.
type ActuatorMetrics struct {
	Configured int `json:"configured"`
	Reporting  int `json:"reporting"`
}

type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	WaitCount       int64 `json:"wait_count"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime:       runtimeMetrics(),
		WebSocket: WSMetrics{
			ConnectedClients: s.Hub().ClientCount(),
			DroppedEvents:    s.Hub().Dropped(),
		},
		Actuators: ActuatorMetrics{Configured: len(s.channels)},
	}

	active := s.controller.Active()
	m.Playback.ActiveRuns = len(active)
	m.Playback.Playing = make([]string, 0, len(active))
	for _, run := range active {
		m.Playback.Playing = append(m.Playback.Playing, run.SequenceID)
	}

	if s.mqtt != nil {
		m.MQTT.Connected = s.mqtt.IsConnected()
		m.MQTT.Subscriptions = s.mqtt.Subscriptions()
	}
	if s.cache != nil {
		m.Actuators.Reporting = s.cache.Len()
	}
	if s.db != nil {
		st := s.db.Stats()
		m.Database = DatabaseMetrics{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			WaitCount:       st.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, m)
}

func runtimeMetrics() RuntimeMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	rm := RuntimeMetrics{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(ms.HeapAlloc) / (1 << 20),
		NumGC:       ms.NumGC,
	}
	if ms.NumGC > 0 {
		rm.LastGCPauseUS = float64(ms.PauseNs[(ms.NumGC+255)%256]) / 1e3
	}
	return rm
}
