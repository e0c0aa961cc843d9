package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/poppy-motion/internal/infrastructure/influxdb"
	"github.com/nerrad567/poppy-motion/internal/motion"
)

// Event names used for bus topics and WebSocket broadcasts.
const (
	EventStarted  = "started"
	EventFinished = "finished"

	BroadcastStarted  = "playback.started"
	BroadcastFrame    = "playback.frame"
	BroadcastFinished = "playback.finished"
)

const defaultHistoryLimit = 50

// EventTopics maps a sequence and event name to a bus topic.
type EventTopics interface {
	PlaybackEvent(sequenceID, event string) string
}

// Broadcaster is the interface for pushing events to live clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Telemetry receives timing data for completed frames and runs.
type Telemetry interface {
	WriteFrameTiming(ft influxdb.FrameTiming)
	WriteRunSummary(rs influxdb.RunSummary)
}

// ControllerDeps holds the controller's collaborators. Store and Engine are
// required; the rest may be nil.
type ControllerDeps struct {
	Store  motion.Store
	Engine *Engine

	Runs      RunRepository
	Events    Publisher
	Topics    EventTopics
	Hub       Broadcaster
	Telemetry Telemetry
	Logger    Logger

	// MaxSpeed bounds Options.Speed. Zero means unbounded.
	MaxSpeed float64
	// HistoryLimit is how many finished runs are kept in memory.
	HistoryLimit int
	// EventQoS is the QoS for started/finished events.
	EventQoS byte
}

type activeRun struct {
	run    Run
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller starts and stops playback runs by sequence ID.
//
// At most one run per sequence ID is active at a time; runs of different
// sequences play concurrently. Runs are detached from the caller's context
// and end on completion, failure, Stop or Close.
//
// All public methods are thread-safe.
type Controller struct {
	deps   ControllerDeps
	logger Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu     sync.Mutex
	active map[string]*activeRun // by sequence ID
	recent []Run                 // finished runs, oldest first
	closed bool
}

// NewController creates a controller.
func NewController(deps ControllerDeps) (*Controller, error) {
	if deps.Store == nil {
		return nil, errors.New("playback: store is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("playback: engine is required")
	}
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = defaultHistoryLimit
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		deps:       deps,
		logger:     logger,
		baseCtx:    ctx,
		baseCancel: cancel,
		active:     make(map[string]*activeRun),
	}, nil
}

// Sequences lists the IDs available to Start.
func (c *Controller) Sequences(ctx context.Context) ([]string, error) {
	return c.deps.Store.List(ctx)
}

// Start loads the sequence and begins playing it in the background.
//
// Load and validation errors (motion.ErrNotFound, motion.ErrMalformedSequence,
// motion.ErrInvalidID) are returned before anything is published.
//
// Returns:
//   - Run: the new run in the running state
//   - error: nil on success, or one of the load errors above,
//     ErrInvalidOptions, ErrAlreadyRunning, ErrControllerClosed
func (c *Controller) Start(ctx context.Context, sequenceID string, opts Options, trigger string) (Run, error) {
	opts, err := c.checkOptions(opts)
	if err != nil {
		return Run{}, err
	}
	if err := c.checkStartable(sequenceID); err != nil {
		return Run{}, err
	}

	seq, err := c.deps.Store.Load(ctx, sequenceID)
	if err != nil {
		return Run{}, err
	}
	interval, err := frameInterval(seq, opts.Speed)
	if err != nil {
		return Run{}, err
	}

	runCtx, cancel := context.WithCancel(c.baseCtx)
	ar := &activeRun{
		run: Run{
			ID:         uuid.New().String(),
			SequenceID: sequenceID,
			Status:     StatusRunning,
			Trigger:    trigger,
			Speed:      opts.Speed,
			Backwards:  opts.Backwards,
			FrameCount: seq.FrameCount(),
			Interval:   interval,
			StartedAt:  time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return Run{}, ErrControllerClosed
	}
	if _, running := c.active[sequenceID]; running {
		c.mu.Unlock()
		cancel()
		return Run{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, sequenceID)
	}
	c.active[sequenceID] = ar
	c.wg.Add(1)
	c.mu.Unlock()

	run := ar.run
	if c.deps.Runs != nil {
		if err := c.deps.Runs.CreateRun(ctx, &run); err != nil {
			c.logger.Error("failed to create run record", "run_id", run.ID, "error", err)
		}
	}
	c.announce(run, EventStarted, BroadcastStarted)

	go c.execute(runCtx, ar, seq, opts)
	return run, nil
}

// Play starts a run and waits for it to finish or for ctx to end. A ctx
// that ends first does not stop the run.
func (c *Controller) Play(ctx context.Context, sequenceID string, opts Options, trigger string) (Run, error) {
	run, err := c.Start(ctx, sequenceID, opts, trigger)
	if err != nil {
		return Run{}, err
	}
	return c.Wait(ctx, run.ID)
}

// Stop cancels the active run of sequenceID. It returns once the run has
// been signalled, not when it has finished; use Wait for that.
func (c *Controller) Stop(sequenceID string) (Run, error) {
	c.mu.Lock()
	ar, ok := c.active[sequenceID]
	c.mu.Unlock()
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrNotRunning, sequenceID)
	}

	ar.cancel()
	c.logger.Info("playback stop requested", "sequence_id", sequenceID, "run_id", ar.run.ID)
	return ar.run, nil
}

// Wait blocks until the run with runID has finished and returns its final
// record. Finished runs return immediately.
func (c *Controller) Wait(ctx context.Context, runID string) (Run, error) {
	c.mu.Lock()
	var done chan struct{}
	for _, ar := range c.active {
		if ar.run.ID == runID {
			done = ar.done
			break
		}
	}
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return Run{}, ctx.Err()
		}
	}
	return c.Run(ctx, runID)
}

// Run returns a run by ID, whether active, recently finished, or stored.
func (c *Controller) Run(ctx context.Context, runID string) (Run, error) {
	c.mu.Lock()
	for _, ar := range c.active {
		if ar.run.ID == runID {
			run := ar.run
			c.mu.Unlock()
			return run, nil
		}
	}
	for i := len(c.recent) - 1; i >= 0; i-- {
		if c.recent[i].ID == runID {
			run := c.recent[i]
			c.mu.Unlock()
			return run, nil
		}
	}
	c.mu.Unlock()

	if c.deps.Runs == nil {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	run, err := c.deps.Runs.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return Run{}, err
	}
	return *run, nil
}

// Active returns the running runs, ordered by sequence ID.
func (c *Controller) Active() []Run {
	c.mu.Lock()
	runs := make([]Run, 0, len(c.active))
	for _, ar := range c.active {
		runs = append(runs, ar.run)
	}
	c.mu.Unlock()

	sort.Slice(runs, func(i, j int) bool { return runs[i].SequenceID < runs[j].SequenceID })
	return runs
}

// IsRunning reports whether sequenceID has an active run.
func (c *Controller) IsRunning(sequenceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[sequenceID]
	return ok
}

// History returns finished runs, newest first. An empty sequenceID means all
// sequences. The run repository is used when configured.
func (c *Controller) History(ctx context.Context, sequenceID string, limit int) ([]Run, error) {
	if c.deps.Runs != nil {
		if sequenceID == "" {
			return c.deps.Runs.ListRuns(ctx, limit)
		}
		return c.deps.Runs.ListRunsBySequence(ctx, sequenceID, limit)
	}

	if limit <= 0 {
		limit = c.deps.HistoryLimit
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	runs := []Run{}
	for i := len(c.recent) - 1; i >= 0 && len(runs) < limit; i-- {
		if sequenceID == "" || c.recent[i].SequenceID == sequenceID {
			runs = append(runs, c.recent[i])
		}
	}
	return runs, nil
}

// Close cancels every active run and waits for them to finish, or for ctx
// to end. Start fails with ErrControllerClosed afterwards.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	active := len(c.active)
	c.mu.Unlock()

	if active > 0 {
		c.logger.Info("stopping active playback runs", "count", active)
	}
	c.baseCancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for playback runs: %w", ctx.Err())
	}
}

func (c *Controller) checkOptions(opts Options) (Options, error) {
	opts, err := opts.normalize()
	if err != nil {
		return opts, err
	}
	if c.deps.MaxSpeed > 0 && opts.Speed > c.deps.MaxSpeed {
		return opts, fmt.Errorf("%w: speed %v exceeds maximum %v", ErrInvalidOptions, opts.Speed, c.deps.MaxSpeed)
	}
	return opts, nil
}

func (c *Controller) checkStartable(sequenceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrControllerClosed
	}
	if _, running := c.active[sequenceID]; running {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, sequenceID)
	}
	return nil
}

// execute runs on its own goroutine for the life of one run.
func (c *Controller) execute(ctx context.Context, ar *activeRun, seq *motion.Sequence, opts Options) {
	defer c.wg.Done()
	defer ar.cancel()

	runID := ar.run.ID
	opts.Observer = c.frameObserver(runID)

	res, _ := c.deps.Engine.Play(ctx, seq, opts) //nolint:errcheck // Outcome is carried in res

	run := ar.run
	run.finish(res)

	if c.deps.Runs != nil {
		// The run context is already cancelled on Stop or Close.
		storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.deps.Runs.UpdateRun(storeCtx, &run); err != nil {
			c.logger.Error("failed to update run record", "run_id", runID, "error", err)
		}
		cancel()
	}

	if c.deps.Telemetry != nil {
		c.deps.Telemetry.WriteRunSummary(influxdb.RunSummary{
			SequenceID:        run.SequenceID,
			RunID:             runID,
			Status:            string(run.Status),
			Speed:             run.Speed,
			Backwards:         run.Backwards,
			FramesPlayed:      run.FramesPlayed,
			CommandsPublished: run.CommandsPublished,
			Duration:          res.Duration,
			FinishedAt:        res.FinishedAt,
		})
	}

	c.mu.Lock()
	delete(c.active, run.SequenceID)
	c.recent = append(c.recent, run)
	if over := len(c.recent) - c.deps.HistoryLimit; over > 0 {
		c.recent = append([]Run(nil), c.recent[over:]...)
	}
	c.mu.Unlock()

	c.announce(run, EventFinished, BroadcastFinished)
	close(ar.done)
}

func (c *Controller) frameObserver(runID string) FrameObserver {
	if c.deps.Telemetry == nil && c.deps.Hub == nil {
		return nil
	}
	return func(r FrameReport) {
		if c.deps.Telemetry != nil {
			c.deps.Telemetry.WriteFrameTiming(influxdb.FrameTiming{
				SequenceID: r.SequenceID,
				RunID:      runID,
				Frame:      r.Frame,
				Scheduled:  r.Scheduled,
				Started:    r.Started,
				Emit:       r.Emit,
			})
		}
		if c.deps.Hub != nil {
			c.deps.Hub.Broadcast(BroadcastFrame, map[string]any{
				"run_id":      runID,
				"sequence_id": r.SequenceID,
				"frame":       r.Frame,
				"step":        r.Step,
				"lateness_ms": math.Round(float64(r.Lateness())/float64(time.Millisecond)*1000) / 1000,
			})
		}
	}
}

// announce publishes a lifecycle event on the bus and to live clients.
func (c *Controller) announce(run Run, event, broadcast string) {
	if c.deps.Events != nil && c.deps.Topics != nil {
		payload, err := json.Marshal(run)
		if err == nil {
			err = c.deps.Events.Publish(c.deps.Topics.PlaybackEvent(run.SequenceID, event), payload, c.deps.EventQoS, false)
		}
		if err != nil {
			c.logger.Warn("failed to publish playback event",
				"sequence_id", run.SequenceID,
				"event", event,
				"error", err,
			)
		}
	}
	if c.deps.Hub != nil {
		c.deps.Hub.Broadcast(broadcast, run)
	}
}
