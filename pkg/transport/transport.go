// Package transport provides the WebSocket channel that carries sampled
// frames to the recognition service and recognition events back.
//
// A Channel is a thin, stateful pipe: it opens one connection, pushes
// frames fire-and-forget, and delivers inbound events one at a time in
// arrival order. There is no queueing, no retry, and no automatic
// reconnection; when the connection drops mid-session the channel reports
// it once through OnClose and stays down until the caller opens a new one.
//
// Example usage:
//
//	ch, err := transport.NewClient(transport.WithURL("ws://localhost:8000/ws/asl-recognition"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ch.OnEvent(func(ev recognition.Event) {
//	    // fold event into session state
//	})
//	ch.OnClose(func(err error) {
//	    // connection died underneath us
//	})
//	if err := ch.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer ch.Close()
//
//	ch.Send(frame) // drops silently unless connected
package transport

import (
	"context"

	"github.com/signstream/go-signstream/pkg/recognition"
)

// ConnectionState represents the channel connection state.
type ConnectionState int

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected ConnectionState = iota
	// StateConnecting indicates the handshake is in progress.
	StateConnecting
	// StateConnected indicates an active connection.
	StateConnected
)

// String returns a human-readable connection state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Channel defines the frame/event pipe between a capture client and the
// recognition service.
type Channel interface {
	// Open establishes the WebSocket connection. Call this after setting
	// up event handlers.
	Open(ctx context.Context) error

	// Send pushes one sampled frame. When the channel is not connected the
	// frame is dropped silently and Send returns nil; there is no queueing
	// or retry. Write failures on a live connection surface as errors for
	// the caller to log and swallow.
	Send(frame recognition.Frame) error

	// SendCommand pushes a control command such as recognition.CommandReset.
	// Drop semantics match Send.
	SendCommand(name string) error

	// OnEvent sets the callback for inbound recognition events. Events are
	// delivered one at a time in arrival order.
	OnEvent(fn func(ev recognition.Event))

	// OnClose sets the callback for unexpected connection loss. It fires at
	// most once per Open; a deliberate Close never triggers it.
	OnClose(fn func(err error))

	// State returns the current connection state.
	State() ConnectionState

	// Close sends a close frame and tears down the connection. Closing an
	// already-closed channel returns nil.
	Close() error
}

// Stats holds channel counters.
type Stats struct {
	// FramesSent is the number of frames written to the wire.
	FramesSent int64

	// FramesDropped is the number of frames discarded because the channel
	// was not connected.
	FramesDropped int64

	// EventsReceived is the number of inbound events delivered.
	EventsReceived int64

	// EventsDropped is the number of inbound payloads discarded as malformed.
	EventsDropped int64

	// BytesSent is the total outbound payload size.
	BytesSent int64
}
