// Package recognition defines the WebSocket wire contract for live
// sign-language recognition. This package is shared between the streaming
// client and the recognition service.
package recognition

import (
	"fmt"
	"net/url"
	"time"
)

// Path is the WebSocket endpoint for live recognition.
const Path = "/ws/asl-recognition"

// MonitorPath is the WebSocket endpoint for read-only observers.
const MonitorPath = "/ws/monitor"

// Frame is an ephemeral encoded camera frame.
type Frame struct {
	Data       []byte    // JPEG bytes
	CapturedAt time.Time // wall-clock capture time
}

// URL converts an http(s) service base URL into the ws(s) recognition URL.
func URL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("recognition: invalid base URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("recognition: unsupported scheme %q", u.Scheme)
	}
	u.Path = Path
	return u.String(), nil
}
