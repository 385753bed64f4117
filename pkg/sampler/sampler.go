// Package sampler pulls frames from a capture handle at a fixed wall-clock
// cadence, encodes them to JPEG, and hands them to a sink. The loop owns no
// lifecycle state of its own: every tick it consults an authoritative state
// callback and acts on what it reads, so pausing and stopping are decided in
// exactly one place.
package sampler

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"sync/atomic"
	"time"

	"github.com/signstream/go-signstream/internal/log"
	"github.com/signstream/go-signstream/pkg/capture"
	"github.com/signstream/go-signstream/pkg/recognition"
)

// State is what the authoritative callback reports to the loop.
type State int

const (
	// StateActive means frames flow.
	StateActive State = iota
	// StatePaused means the loop keeps ticking but does no work.
	StatePaused
	// StateStopped means the loop exits.
	StateStopped
)

// StateFunc reports the current streaming state. It is read once per tick.
type StateFunc func() State

// Sink receives sampled frames. Sends are fire-and-forget; the sampler logs
// and swallows sink errors so one bad frame never ends a stream.
type Sink interface {
	Send(frame recognition.Frame) error
}

// Stats holds sampling counters.
type Stats struct {
	Sampled int64 // frames encoded and handed to the sink
	Skipped int64 // ticks skipped because the handle was not ready
	Dropped int64 // frames lost to read, encode, or send failures
}

// Sampler runs the sampling loop.
type Sampler struct {
	cfg    Config
	handle capture.Handle
	sink   Sink
	state  StateFunc

	sampled atomic.Int64
	skipped atomic.Int64
	dropped atomic.Int64
}

// New builds a sampler over an acquired handle.
func New(handle capture.Handle, sink Sink, state StateFunc, opts ...Option) (*Sampler, error) {
	if handle == nil {
		return nil, errors.New("sampler: handle is required")
	}
	if sink == nil {
		return nil, errors.New("sampler: sink is required")
	}
	if state == nil {
		return nil, errors.New("sampler: state callback is required")
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Sampler{cfg: cfg, handle: handle, sink: sink, state: state}, nil
}

// Run drives the loop until the context is cancelled or the state callback
// reports stopped. It blocks; callers run it in a goroutine.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Debug("sampler started", "interval", s.cfg.Interval, "quality", s.cfg.Quality)

	for {
		select {
		case <-ctx.Done():
			log.Debug("sampler stopped", "reason", "context", "sampled", s.sampled.Load())
			return
		case <-ticker.C:
		}

		switch s.state() {
		case StateStopped:
			log.Debug("sampler stopped", "reason", "state", "sampled", s.sampled.Load())
			return
		case StatePaused:
			continue
		}

		if !s.handle.Ready() {
			s.skipped.Add(1)
			continue
		}

		s.sampleOnce()
	}
}

// sampleOnce reads, encodes, and sends a single frame. Failures are logged
// and swallowed.
func (s *Sampler) sampleOnce() {
	img, err := s.handle.Read()
	if err != nil {
		s.dropped.Add(1)
		log.Debug("frame read failed", "error", err)
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.cfg.Quality}); err != nil {
		s.dropped.Add(1)
		log.Warn("frame encode failed", "error", err)
		return
	}

	frame := recognition.Frame{Data: buf.Bytes(), CapturedAt: time.Now()}
	if err := s.sink.Send(frame); err != nil {
		s.dropped.Add(1)
		log.Warn("frame send failed", "error", err)
		return
	}

	s.sampled.Add(1)
}

// Stats returns a snapshot of the sampling counters.
func (s *Sampler) Stats() Stats {
	return Stats{
		Sampled: s.sampled.Load(),
		Skipped: s.skipped.Load(),
		Dropped: s.dropped.Load(),
	}
}
