package transport

import (
	"context"
	"sync"

	"github.com/signstream/go-signstream/pkg/recognition"
)

// Mock is a mock implementation of Channel for testing.
type Mock struct {
	mu sync.RWMutex

	// State
	state ConnectionState

	// Callbacks
	onEvent func(recognition.Event)
	onClose func(error)

	// Configurable behavior
	OpenFunc        func(ctx context.Context) error
	SendFunc        func(frame recognition.Frame) error
	SendCommandFunc func(name string) error
	CloseFunc       func() error

	// Captured calls for assertions
	FramesSent   []recognition.Frame
	CommandsSent []string
	CloseCalls   int
}

// NewMock creates a new Mock channel.
func NewMock() *Mock {
	return &Mock{}
}

// Open implements Channel.
func (m *Mock) Open(ctx context.Context) error {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateDisconnected {
		return ErrAlreadyConnected
	}
	m.state = StateConnected
	return nil
}

// Send implements Channel. Frames sent while disconnected are dropped.
func (m *Mock) Send(frame recognition.Frame) error {
	if m.SendFunc != nil {
		return m.SendFunc(frame)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		return nil
	}
	m.FramesSent = append(m.FramesSent, frame)
	return nil
}

// SendCommand implements Channel.
func (m *Mock) SendCommand(name string) error {
	if m.SendCommandFunc != nil {
		return m.SendCommandFunc(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		return nil
	}
	m.CommandsSent = append(m.CommandsSent, name)
	return nil
}

// OnEvent implements Channel.
func (m *Mock) OnEvent(fn func(ev recognition.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvent = fn
}

// OnClose implements Channel.
func (m *Mock) OnClose(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClose = fn
}

// State implements Channel.
func (m *Mock) State() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Close implements Channel.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	m.state = StateDisconnected
	return nil
}

// EmitEvent delivers an event to the registered handler, simulating an
// inbound service message.
func (m *Mock) EmitEvent(ev recognition.Event) {
	m.mu.RLock()
	fn := m.onEvent
	m.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// EmitClose simulates an unexpected connection loss.
func (m *Mock) EmitClose(err error) {
	m.mu.Lock()
	m.state = StateDisconnected
	fn := m.onClose
	m.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// SentFrames returns a copy of captured frames.
func (m *Mock) SentFrames() []recognition.Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]recognition.Frame, len(m.FramesSent))
	copy(out, m.FramesSent)
	return out
}

// SentCommands returns a copy of captured commands.
func (m *Mock) SentCommands() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.CommandsSent))
	copy(out, m.CommandsSent)
	return out
}

// Ensure Mock implements Channel.
var _ Channel = (*Mock)(nil)
