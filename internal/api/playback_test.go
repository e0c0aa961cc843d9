package api

import (
	"net/http"
	"testing"

	"github.com/nerrad567/poppy-motion/internal/actuator"
	"github.com/nerrad567/poppy-motion/internal/playback"
)

func TestPlaySequence_Wait(t *testing.T) {
	f := testServer(t)

	w := f.do(http.MethodPost, "/api/v1/sequences/wave/play?wait=true", `{"speed":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var run playback.Run
	decodeBody(t, w, &run)
	if run.Status != playback.StatusCompleted || run.Speed != 2 || run.FramesPlayed != 2 {
		t.Errorf("run = %+v", run)
	}
	if run.CommandsPublished != 4 || run.HandCommandsPublished != 2 {
		t.Errorf("published %d commands and %d hand commands, want 4 and 2",
			run.CommandsPublished, run.HandCommandsPublished)
	}

	w = f.do(http.MethodGet, "/api/v1/runs/"+run.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET run status = %d", w.Code)
	}
	var got playback.Run
	decodeBody(t, w, &got)
	if got.ID != run.ID || got.Trigger != playback.TriggerAPI {
		t.Errorf("GET run = %+v", got)
	}
}

func TestPlaySequence_EmptyBody(t *testing.T) {
	f := testServer(t)

	w := f.do(http.MethodPost, "/api/v1/sequences/wave/play", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var run playback.Run
	decodeBody(t, w, &run)
	if run.Status != playback.StatusRunning || run.Speed != 1 {
		t.Errorf("run = %+v", run)
	}
	waitIdle(t, f.ctrl)
}

func TestPlaySequence_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{name: "unknown", path: "/api/v1/sequences/missing/play", wantCode: http.StatusNotFound},
		{name: "malformed", path: "/api/v1/sequences/broken/play", wantCode: http.StatusUnprocessableEntity},
		{name: "bad json", path: "/api/v1/sequences/wave/play", body: `{"speed":`, wantCode: http.StatusBadRequest},
		{name: "bad speed", path: "/api/v1/sequences/wave/play", body: `{"speed":-2}`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testServer(t)

			w := f.do(http.MethodPost, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if got := len(f.bus.topics); got != 0 {
				t.Errorf("published %d messages, want 0", got)
			}
		})
	}
}

func TestStopSequence(t *testing.T) {
	f := testServer(t)

	if w := f.do(http.MethodPost, "/api/v1/sequences/slow/play", `{}`); w.Code != http.StatusAccepted {
		t.Fatalf("play status = %d", w.Code)
	}

	w := f.do(http.MethodGet, "/api/v1/playback", "")
	var active struct {
		Runs  []playback.Run `json:"runs"`
		Count int            `json:"count"`
	}
	decodeBody(t, w, &active)
	if active.Count != 1 || active.Runs[0].SequenceID != "slow" {
		t.Fatalf("active = %+v", active)
	}

	if w := f.do(http.MethodPost, "/api/v1/sequences/slow/stop", ""); w.Code != http.StatusAccepted {
		t.Errorf("stop status = %d", w.Code)
	}
	waitIdle(t, f.ctrl)

	if w := f.do(http.MethodPost, "/api/v1/sequences/slow/stop", ""); w.Code != http.StatusConflict {
		t.Errorf("idle stop status = %d, want %d", w.Code, http.StatusConflict)
	}

	w = f.do(http.MethodGet, "/api/v1/sequences/slow/runs", "")
	var history struct {
		Runs []playback.Run `json:"runs"`
	}
	decodeBody(t, w, &history)
	if len(history.Runs) != 1 || history.Runs[0].Status != playback.StatusCancelled {
		t.Errorf("history = %+v", history.Runs)
	}
}

func TestListRuns(t *testing.T) {
	f := testServer(t)

	for i := 0; i < 3; i++ {
		if w := f.do(http.MethodPost, "/api/v1/sequences/wave/play?wait=true", ""); w.Code != http.StatusOK {
			t.Fatalf("play %d status = %d", i, w.Code)
		}
	}

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantCount int
	}{
		{name: "all", path: "/api/v1/runs", wantCode: http.StatusOK, wantCount: 3},
		{name: "limited", path: "/api/v1/runs?limit=2", wantCode: http.StatusOK, wantCount: 2},
		{name: "by sequence", path: "/api/v1/runs?sequence=wave", wantCode: http.StatusOK, wantCount: 3},
		{name: "other sequence", path: "/api/v1/runs?sequence=slow", wantCode: http.StatusOK, wantCount: 0},
		{name: "bad limit", path: "/api/v1/runs?limit=zero", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodGet, tt.path, "")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var resp struct {
				Count int `json:"count"`
			}
			decodeBody(t, w, &resp)
			if resp.Count != tt.wantCount {
				t.Errorf("count = %d, want %d", resp.Count, tt.wantCount)
			}
		})
	}
}

func TestGetRun_NotFound(t *testing.T) {
	f := testServer(t)

	if w := f.do(http.MethodGet, "/api/v1/runs/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListChannels(t *testing.T) {
	f := testServer(t)

	w := f.do(http.MethodGet, "/api/v1/channels", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Channels map[string]actuator.Status `json:"channels"`
		Count    int                        `json:"count"`
		Missing  []string                   `json:"missing"`
	}
	decodeBody(t, w, &resp)
	if resp.Count != 2 || resp.Channels["l_shoulder_y"].MaxLoad != 100 {
		t.Errorf("channels = %+v", resp.Channels)
	}
	if len(resp.Missing) != 1 || resp.Missing[0] != "head_z" {
		t.Errorf("missing = %v, want [head_z]", resp.Missing)
	}
}
