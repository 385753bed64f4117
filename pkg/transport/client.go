package transport

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signstream/go-signstream/pkg/recognition"
)

// Client is the gorilla/websocket implementation of Channel.
type Client struct {
	config *Config
	logger *slog.Logger

	mu      sync.RWMutex
	state   ConnectionState
	conn    *websocket.Conn
	cancel  context.CancelFunc
	onEvent func(recognition.Event)
	onClose func(error)

	// closeOnce guards the OnClose emission for the current connection.
	// Open replaces it so a reopened channel can report again.
	closeOnce *sync.Once

	// writeMu serializes wire writes; frames and commands arrive from
	// different goroutines.
	writeMu sync.Mutex

	framesSent     atomic.Int64
	framesDropped  atomic.Int64
	eventsReceived atomic.Int64
	eventsDropped  atomic.Int64
	bytesSent      atomic.Int64
}

// NewClient creates a channel client for the recognition service.
//
// Example:
//
//	ch, err := transport.NewClient(
//	    transport.WithURL(url),
//	    transport.WithHandshakeTimeout(5*time.Second),
//	)
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		config: cfg,
		logger: cfg.Logger.With("component", "transport.client"),
		state:  StateDisconnected,
	}, nil
}

// Open establishes the WebSocket connection.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	// A connection that died without Close leaves a stale socket behind.
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.logger.Info("connecting to recognition service", "url", c.config.URL)

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return NewConnectionError("dial failed", err, status)
	}

	// The read loop outlives the dial context; Close cancels it.
	msgCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.closeOnce = &sync.Once{}
	c.state = StateConnected
	c.mu.Unlock()

	go c.readLoop(msgCtx, conn)

	c.logger.Info("channel connected", "url", c.config.URL)
	return nil
}

// Send pushes one sampled frame. Frames sent while disconnected are
// dropped silently.
func (c *Client) Send(frame recognition.Frame) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != StateConnected || conn == nil {
		c.framesDropped.Add(1)
		return nil
	}

	data, err := recognition.EncodeFrame(frame)
	if err != nil {
		return NewConnectionError("frame encode failed", err, 0)
	}

	if err := c.write(conn, data); err != nil {
		return NewConnectionError("frame write failed", err, 0)
	}

	c.framesSent.Add(1)
	c.bytesSent.Add(int64(len(data)))
	return nil
}

// SendCommand pushes a control command such as recognition.CommandReset.
// Commands sent while disconnected are dropped silently.
func (c *Client) SendCommand(name string) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != StateConnected || conn == nil {
		return nil
	}

	data, err := recognition.EncodeCommand(name)
	if err != nil {
		return NewConnectionError("command encode failed", err, 0)
	}

	if err := c.write(conn, data); err != nil {
		return NewConnectionError("command write failed", err, 0)
	}

	c.bytesSent.Add(int64(len(data)))
	c.logger.Debug("sent command", "command", name)
	return nil
}

func (c *Client) write(conn *websocket.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// OnEvent sets the callback for inbound recognition events.
func (c *Client) OnEvent(fn func(ev recognition.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

// OnClose sets the callback for unexpected connection loss.
func (c *Client) OnClose(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected returns true if the channel has an active connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close sends a close frame and tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == StateDisconnected && c.conn == nil {
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	// Cancel before closing the socket so the read loop sees a
	// deliberate shutdown and stays quiet.
	if cancel != nil {
		cancel()
	}

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}

	c.logger.Info("channel closed")
	return nil
}

// Stats returns channel counters.
func (c *Client) Stats() Stats {
	return Stats{
		FramesSent:     c.framesSent.Load(),
		FramesDropped:  c.framesDropped.Load(),
		EventsReceived: c.eventsReceived.Load(),
		EventsDropped:  c.eventsDropped.Load(),
		BytesSent:      c.bytesSent.Load(),
	}
}

// readLoop delivers inbound events one at a time in arrival order.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		if c.state == StateConnected {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("service closed the connection")
				c.emitClose(ErrConnectionClosed)
				return
			}
			c.logger.Error("read error", "error", err)
			c.emitClose(NewConnectionError("read failed", err, 0))
			return
		}

		ev, err := recognition.ParseEvent(data)
		if err != nil {
			c.logger.Warn("dropping malformed event", "error", err)
			c.eventsDropped.Add(1)
			continue
		}

		c.eventsReceived.Add(1)
		c.emitEvent(ev)
	}
}

func (c *Client) emitEvent(ev recognition.Event) {
	c.mu.RLock()
	fn := c.onEvent
	c.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// emitClose reports an unexpected closure at most once per connection.
func (c *Client) emitClose(err error) {
	c.mu.RLock()
	fn := c.onClose
	once := c.closeOnce
	c.mu.RUnlock()

	if once == nil {
		return
	}
	once.Do(func() {
		if fn != nil {
			fn(err)
		}
	})
}

// Ensure Client implements Channel.
var _ Channel = (*Client)(nil)
