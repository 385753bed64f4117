// Package session coordinates one recognition session end to end: it owns
// the capture source, the transport channel, and the sampling loop, and
// folds inbound recognition events into display state.
//
// The controller is a single-owner state machine. All transitions funnel
// through one mutex-guarded state value; the sampler consults that state
// every tick, so pausing the session starves the frame flow without
// touching the camera or the connection.
//
// Example usage:
//
//	ctrl, err := session.New(camera, channel)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctrl.OnUpdate(func(snap session.Snapshot) {
//	    fmt.Println(snap.Sentence)
//	})
//	if err := ctrl.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer ctrl.Stop()
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/signstream/go-signstream/pkg/capture"
	"github.com/signstream/go-signstream/pkg/recognition"
	"github.com/signstream/go-signstream/pkg/sampler"
	"github.com/signstream/go-signstream/pkg/transport"
)

// State represents the session lifecycle state.
type State int

const (
	// StateIdle indicates no session is running.
	StateIdle State = iota
	// StateConnecting indicates the camera and channel are being brought up.
	StateConnecting
	// StateActive indicates frames are flowing to the service.
	StateActive
	// StatePaused indicates the session is held: camera on, channel open,
	// no frames flowing.
	StatePaused
	// StateError indicates the session died and is waiting for Stop.
	StateError
)

// String returns a human-readable session state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the controller's observable state.
type Snapshot struct {
	// SessionID identifies the current (or last) session.
	SessionID string

	// State is the lifecycle state.
	State State

	// Sentence is the raw assembled sentence from the service.
	Sentence string

	// AnalyzedSentence is the grammar-corrected sentence from the service.
	AnalyzedSentence string

	// Prediction is the most recent letter prediction.
	Prediction string

	// Confidence is the confidence of the most recent prediction.
	Confidence float64

	// RemoteError is the last error message reported by the service.
	RemoteError string

	// Cause is the error that moved the session into StateError, if any.
	Cause error
}

// display holds the event-folded fields shown to the user.
type display struct {
	sentence    string
	analyzed    string
	prediction  string
	confidence  float64
	remoteError string
}

// Controller drives a recognition session over a capture source and a
// transport channel.
type Controller struct {
	cfg    *Config
	logger *slog.Logger

	source  capture.Source
	channel transport.Channel

	mu        sync.RWMutex
	state     State
	cause     error
	sessionID string
	disp      display
	cancel    context.CancelFunc
	onUpdate  func(Snapshot)

	// wg tracks the sampler goroutine of the current session.
	wg sync.WaitGroup
}

// New creates a session controller. It registers itself as the channel's
// event and close handler.
func New(source capture.Source, channel transport.Channel, opts ...Option) (*Controller, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if channel == nil {
		return nil, ErrNilChannel
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Controller{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "session.controller"),
		source:  source,
		channel: channel,
		state:   StateIdle,
	}

	channel.OnEvent(c.handleEvent)
	channel.OnClose(c.handleClose)

	return c, nil
}

// Start brings up a new session: acquire the camera, open the channel,
// begin sampling. Only valid from Idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrNotIdle
	}
	c.state = StateConnecting
	c.cause = nil
	c.sessionID = uuid.NewString()
	sessionID := c.sessionID
	c.mu.Unlock()
	c.emitUpdate()

	logger := c.logger.With("session_id", sessionID)
	logger.Info("starting session")

	handle, err := c.source.Acquire(ctx)
	if err != nil {
		logger.Error("camera acquisition failed", "error", err)
		c.fail(err)
		return err
	}

	if err := c.channel.Open(ctx); err != nil {
		logger.Error("channel open failed", "error", err)
		_ = c.source.Release()
		c.fail(err)
		return err
	}

	smp, err := sampler.New(handle, c.channel, c.samplerGate,
		sampler.WithFramerate(c.cfg.Framerate),
		sampler.WithQuality(c.cfg.Quality),
	)
	if err != nil {
		_ = c.channel.Close()
		_ = c.source.Release()
		c.fail(err)
		return err
	}

	samplerCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.state != StateConnecting {
		// The channel died while we were wiring up; the close handler
		// already moved the session to Error.
		cause := c.cause
		c.mu.Unlock()
		cancel()
		_ = c.channel.Close()
		_ = c.source.Release()
		if cause == nil {
			cause = transport.ErrConnectionClosed
		}
		return cause
	}
	c.cancel = cancel
	c.state = StateActive
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		smp.Run(samplerCtx)
	}()

	logger.Info("session active", "framerate", c.cfg.Framerate)
	c.emitUpdate()
	return nil
}

// Pause holds the session: the camera stays on and the channel stays
// open, but frames stop flowing. Pausing a paused session is a no-op.
func (c *Controller) Pause() error {
	c.mu.Lock()
	switch c.state {
	case StatePaused:
		c.mu.Unlock()
		return nil
	case StateActive:
		c.state = StatePaused
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		return ErrNotActive
	}

	c.logger.Info("session paused")
	c.emitUpdate()
	return nil
}

// Resume restarts the frame flow of a paused session. Resuming an active
// session is a no-op.
func (c *Controller) Resume() error {
	c.mu.Lock()
	switch c.state {
	case StateActive:
		c.mu.Unlock()
		return nil
	case StatePaused:
		c.state = StateActive
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		return ErrNotPaused
	}

	c.logger.Info("session resumed")
	c.emitUpdate()
	return nil
}

// Stop tears the session down from any state and returns to Idle. It
// cancels the sampler, closes the channel, and releases the camera.
// Stopping an idle controller returns nil.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return nil
	}
	prev := c.state
	c.state = StateIdle
	c.cause = nil
	cancel := c.cancel
	c.cancel = nil
	sessionID := c.sessionID
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()

	_ = c.channel.Close()
	_ = c.source.Release()

	c.logger.Info("session stopped", "session_id", sessionID, "from", prev.String())
	c.emitUpdate()
	return nil
}

// Reset clears the assembled text and prediction display. It never
// touches the connection, the camera, or the state machine. When the
// channel is connected the service's assembly state is cleared too.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.disp = display{}
	c.mu.Unlock()

	// Fire-and-forget; SendCommand drops silently when disconnected.
	if err := c.channel.SendCommand(recognition.CommandReset); err != nil {
		c.logger.Warn("reset command failed", "error", err)
	}

	c.logger.Info("display reset")
	c.emitUpdate()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns a copy of the observable session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:        c.sessionID,
		State:            c.state,
		Sentence:         c.disp.sentence,
		AnalyzedSentence: c.disp.analyzed,
		Prediction:       c.disp.prediction,
		Confidence:       c.disp.confidence,
		RemoteError:      c.disp.remoteError,
		Cause:            c.cause,
	}
}

// OnUpdate sets the callback fired after every transition and every
// folded event.
func (c *Controller) OnUpdate(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// samplerGate maps the session state onto the sampler's view of it.
func (c *Controller) samplerGate() sampler.State {
	switch c.State() {
	case StateActive:
		return sampler.StateActive
	case StatePaused:
		return sampler.StatePaused
	default:
		return sampler.StateStopped
	}
}

// handleEvent folds one inbound recognition event into display state.
// Events arriving outside an active or paused session are dropped.
func (c *Controller) handleEvent(ev recognition.Event) {
	c.mu.Lock()
	if c.state != StateActive && c.state != StatePaused {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("ignoring event outside session", "state", state.String())
		return
	}

	// Only fields present in the event overwrite display state.
	if ev.Prediction != nil {
		c.disp.prediction = *ev.Prediction
	}
	if ev.Confidence != nil {
		c.disp.confidence = *ev.Confidence
	}
	if ev.Sentence != nil {
		c.disp.sentence = *ev.Sentence
	}
	if ev.AnalyzedSentence != nil {
		c.disp.analyzed = *ev.AnalyzedSentence
	}
	if ev.Error != nil {
		c.disp.remoteError = *ev.Error
		c.logger.Warn("service reported error", "error", *ev.Error)
	}
	c.mu.Unlock()

	c.emitUpdate()
}

// handleClose reacts to the channel dying underneath a live session.
// There is no automatic reconnection; recovery is Stop then Start.
func (c *Controller) handleClose(err error) {
	c.mu.Lock()
	switch c.state {
	case StateConnecting, StateActive, StatePaused:
	default:
		c.mu.Unlock()
		return
	}
	c.state = StateError
	c.cause = err
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	c.logger.Error("connection lost", "error", err)

	if cancel != nil {
		cancel()
	}
	_ = c.channel.Close()
	_ = c.source.Release()

	c.emitUpdate()
}

// fail records a session bring-up failure.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.state = StateError
	c.cause = err
	c.mu.Unlock()
	c.emitUpdate()
}

func (c *Controller) emitUpdate() {
	c.mu.RLock()
	fn := c.onUpdate
	snap := c.snapshotLocked()
	c.mu.RUnlock()
	if fn != nil {
		fn(snap)
	}
}
