package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signstream/go-signstream/pkg/recognition"
)

var upgrader = websocket.Upgrader{}

// wsServer is a minimal recognition-service stand-in. It records inbound
// text messages and can push arbitrary payloads to the connected client.
type wsServer struct {
	*httptest.Server

	mu       sync.Mutex
	conn     *websocket.Conn
	received []string
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()

	s := &wsServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, string(data))
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsServer) push(t *testing.T, payload string) {
	t.Helper()
	conn := s.waitConn(t)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("push failed: %v", err)
	}
}

// waitConn blocks until the handler goroutine has registered the client.
func (s *wsServer) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			return conn
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no client connected")
	return nil
}

func (s *wsServer) dropClient(t *testing.T) {
	t.Helper()
	_ = s.waitConn(t).Close()
}

func (s *wsServer) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.received))
	copy(out, s.received)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(); !errors.Is(err, ErrMissingURL) {
		t.Errorf("expected ErrMissingURL, got %v", err)
	}

	c, err := NewClient(WithURL("ws://localhost:8000/ws/asl-recognition"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.config.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 10s", c.config.HandshakeTimeout)
	}
	if c.State() != StateDisconnected {
		t.Errorf("initial state = %v, want disconnected", c.State())
	}
}

func TestOpenAndClose(t *testing.T) {
	srv := newWSServer(t)

	c, err := NewClient(WithURL(srv.url()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if c.State() != StateConnected {
		t.Errorf("state = %v, want connected", c.State())
	}

	if err := c.Open(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Open: expected ErrAlreadyConnected, got %v", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state after close = %v, want disconnected", c.State())
	}

	// Close is idempotent.
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestOpenHandshakeFailure(t *testing.T) {
	t.Run("upgrade rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no", http.StatusForbidden)
		}))
		defer srv.Close()

		c, err := NewClient(WithURL("ws" + strings.TrimPrefix(srv.URL, "http")))
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}

		err = c.Open(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}

		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			t.Fatalf("expected *ConnectionError, got %T", err)
		}
		if connErr.StatusCode != http.StatusForbidden {
			t.Errorf("StatusCode = %d, want 403", connErr.StatusCode)
		}
		if c.State() != StateDisconnected {
			t.Errorf("state = %v, want disconnected after failed open", c.State())
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		c, err := NewClient(
			WithURL("ws://127.0.0.1:1/ws/asl-recognition"),
			WithHandshakeTimeout(500*time.Millisecond),
		)
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}

		err = c.Open(context.Background())
		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			t.Fatalf("expected *ConnectionError, got %v", err)
		}

		// The channel is reusable after a failed open.
		if c.State() != StateDisconnected {
			t.Errorf("state = %v, want disconnected", c.State())
		}
	})
}

func TestSendWhenDisconnected(t *testing.T) {
	c, err := NewClient(WithURL("ws://localhost:8000/ws/asl-recognition"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	frame := recognition.Frame{Data: []byte{0xff, 0xd8}, CapturedAt: time.Now()}
	if err := c.Send(frame); err != nil {
		t.Errorf("Send while disconnected should return nil, got %v", err)
	}
	if err := c.SendCommand(recognition.CommandReset); err != nil {
		t.Errorf("SendCommand while disconnected should return nil, got %v", err)
	}

	stats := c.Stats()
	if stats.FramesDropped != 1 {
		t.Errorf("FramesDropped = %d, want 1", stats.FramesDropped)
	}
	if stats.FramesSent != 0 || stats.BytesSent != 0 {
		t.Errorf("nothing should have hit the wire: %+v", stats)
	}
}

func TestSendFrame(t *testing.T) {
	srv := newWSServer(t)

	c, err := NewClient(WithURL(srv.url()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01}
	if err := c.Send(recognition.Frame{Data: payload, CapturedAt: time.Now()}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return len(srv.messages()) == 1 })

	var msg struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal([]byte(srv.messages()[0]), &msg); err != nil {
		t.Fatalf("server received invalid JSON: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(msg.Image)
	if err != nil {
		t.Fatalf("image field is not base64: %v", err)
	}
	if string(decoded) != string(payload) {
		t.Error("frame bytes mismatch after round trip")
	}

	stats := c.Stats()
	if stats.FramesSent != 1 {
		t.Errorf("FramesSent = %d, want 1", stats.FramesSent)
	}
	if stats.BytesSent == 0 {
		t.Error("BytesSent should be non-zero")
	}
}

func TestSendCommand(t *testing.T) {
	srv := newWSServer(t)

	c, err := NewClient(WithURL(srv.url()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	if err := c.SendCommand(recognition.CommandReset); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return len(srv.messages()) == 1 })

	if got, want := srv.messages()[0], `{"command":"reset"}`; got != want {
		t.Errorf("wire payload = %s, want %s", got, want)
	}
}

func TestEventsDeliveredInArrivalOrder(t *testing.T) {
	srv := newWSServer(t)

	c, err := NewClient(WithURL(srv.url()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	var mu sync.Mutex
	var got []string
	c.OnEvent(func(ev recognition.Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Sentence != nil {
			got = append(got, *ev.Sentence)
		}
	})

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	srv.push(t, `{"sentence":"A"}`)
	srv.push(t, `not json at all`)
	srv.push(t, `{"sentence":"AB"}`)
	srv.push(t, `{"prediction":"C","confidence":3.5}`)
	srv.push(t, `{"sentence":"ABC"}`)

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	for i, want := range []string{"A", "AB", "ABC"} {
		if got[i] != want {
			t.Errorf("event %d = %q, want %q", i, got[i], want)
		}
	}

	stats := c.Stats()
	if stats.EventsReceived != 3 {
		t.Errorf("EventsReceived = %d, want 3", stats.EventsReceived)
	}
	if stats.EventsDropped != 2 {
		t.Errorf("EventsDropped = %d, want 2", stats.EventsDropped)
	}
}

func TestUnexpectedCloseEmitsOnce(t *testing.T) {
	srv := newWSServer(t)

	c, err := NewClient(WithURL(srv.url()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	var emissions atomic.Int64
	var lastErr atomic.Value
	c.OnClose(func(err error) {
		emissions.Add(1)
		lastErr.Store(err)
	})

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	srv.dropClient(t)

	waitFor(t, time.Second, func() bool { return emissions.Load() == 1 })

	if err, ok := lastErr.Load().(error); !ok || err == nil {
		t.Error("OnClose should receive a non-nil error")
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected after drop", c.State())
	}

	// Teardown after the fact stays quiet.
	if err := c.Close(); err != nil {
		t.Errorf("Close after drop: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if emissions.Load() != 1 {
		t.Errorf("emissions = %d, want exactly 1", emissions.Load())
	}
}

func TestDeliberateCloseDoesNotEmit(t *testing.T) {
	srv := newWSServer(t)

	c, err := NewClient(WithURL(srv.url()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	var emissions atomic.Int64
	c.OnClose(func(err error) {
		emissions.Add(1)
	})

	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if emissions.Load() != 0 {
		t.Errorf("deliberate close emitted %d times, want 0", emissions.Load())
	}
}

func TestReopenAfterClose(t *testing.T) {
	srv := newWSServer(t)

	c, err := NewClient(WithURL(srv.url()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := c.Open(context.Background()); err != nil {
			t.Fatalf("Open %d failed: %v", i, err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Close %d failed: %v", i, err)
		}
	}
}

func TestConnectionStateString(t *testing.T) {
	tests := []struct {
		state ConnectionState
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{ConnectionState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestMockChannel(t *testing.T) {
	t.Run("lifecycle and capture", func(t *testing.T) {
		m := NewMock()

		if err := m.Open(context.Background()); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if m.State() != StateConnected {
			t.Errorf("state = %v, want connected", m.State())
		}

		frame := recognition.Frame{Data: []byte{1, 2, 3}}
		if err := m.Send(frame); err != nil {
			t.Errorf("Send failed: %v", err)
		}
		if err := m.SendCommand(recognition.CommandReset); err != nil {
			t.Errorf("SendCommand failed: %v", err)
		}

		if got := m.SentFrames(); len(got) != 1 || string(got[0].Data) != string(frame.Data) {
			t.Errorf("SentFrames = %v", got)
		}
		if got := m.SentCommands(); len(got) != 1 || got[0] != recognition.CommandReset {
			t.Errorf("SentCommands = %v", got)
		}

		if err := m.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	t.Run("drops when disconnected", func(t *testing.T) {
		m := NewMock()

		if err := m.Send(recognition.Frame{Data: []byte{1}}); err != nil {
			t.Errorf("Send: %v", err)
		}
		if len(m.SentFrames()) != 0 {
			t.Error("disconnected mock should not capture frames")
		}
	})

	t.Run("emit helpers", func(t *testing.T) {
		m := NewMock()

		var events []recognition.Event
		m.OnEvent(func(ev recognition.Event) { events = append(events, ev) })

		var closeErr error
		m.OnClose(func(err error) { closeErr = err })

		sentence := "HELLO"
		m.EmitEvent(recognition.Event{Sentence: &sentence})
		m.EmitClose(ErrConnectionClosed)

		if len(events) != 1 || events[0].Sentence == nil || *events[0].Sentence != "HELLO" {
			t.Errorf("events = %+v", events)
		}
		if !errors.Is(closeErr, ErrConnectionClosed) {
			t.Errorf("closeErr = %v", closeErr)
		}
		if m.State() != StateDisconnected {
			t.Error("EmitClose should leave the mock disconnected")
		}
	})
}
