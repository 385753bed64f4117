// Package capture provides camera acquisition for live sign-language
// streaming. A Source owns a physical or remote camera; acquiring it yields
// a Handle that serves the current video frame on demand.
//
// Two implementations ship here: Camera opens a local device through OpenCV,
// and Remote pulls a WebRTC feed from a GStreamer webrtcsink signalling
// server. Both honor the same lifecycle: Acquire exactly once, Release on
// every teardown path, Release idempotent.
package capture

import (
	"context"
	"image"
)

// Source is a camera that can be acquired for streaming.
type Source interface {
	// Acquire opens the device and returns a live handle. It fails with
	// ErrPermissionDenied or ErrDeviceUnavailable (wrapped with detail).
	// Acquiring an already-acquired source fails with ErrAlreadyAcquired.
	Acquire(ctx context.Context) (Handle, error)

	// Release stops the device and invalidates the handle. Calling it on
	// a source that is not acquired is a no-op.
	Release() error
}

// Handle serves frames from an acquired source.
type Handle interface {
	// Read returns the current video frame.
	Read() (image.Image, error)

	// Ready reports whether the handle has buffered data to serve.
	// Samplers skip their tick while this is false.
	Ready() bool
}
