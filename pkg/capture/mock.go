package capture

import (
	"context"
	"image"
	"sync"
)

// MockSource implements Source for testing.
type MockSource struct {
	// AcquireFunc is called when Acquire is invoked.
	AcquireFunc func(ctx context.Context) (Handle, error)

	// ReleaseFunc is called when Release is invoked.
	ReleaseFunc func() error

	mu           sync.Mutex
	acquireCalls int
	releaseCalls int
}

// NewMockSource creates a mock source that yields the given handle.
func NewMockSource(handle Handle) *MockSource {
	return &MockSource{
		AcquireFunc: func(ctx context.Context) (Handle, error) {
			return handle, nil
		},
		ReleaseFunc: func() error { return nil },
	}
}

// Acquire calls AcquireFunc and records the call.
func (m *MockSource) Acquire(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	m.acquireCalls++
	m.mu.Unlock()
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx)
	}
	return nil, ErrDeviceUnavailable
}

// Release calls ReleaseFunc and records the call.
func (m *MockSource) Release() error {
	m.mu.Lock()
	m.releaseCalls++
	m.mu.Unlock()
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc()
	}
	return nil
}

// AcquireCalls returns how many times Acquire was invoked.
func (m *MockSource) AcquireCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquireCalls
}

// ReleaseCalls returns how many times Release was invoked.
func (m *MockSource) ReleaseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseCalls
}

// MockHandle implements Handle for testing.
type MockHandle struct {
	// ReadFunc is called when Read is invoked.
	ReadFunc func() (image.Image, error)

	// ReadyFunc is called when Ready is invoked.
	ReadyFunc func() bool

	mu        sync.Mutex
	readCalls int
}

// NewMockHandle creates a handle that always serves a small gray frame.
func NewMockHandle() *MockHandle {
	frame := image.NewRGBA(image.Rect(0, 0, 8, 8))
	return &MockHandle{
		ReadFunc:  func() (image.Image, error) { return frame, nil },
		ReadyFunc: func() bool { return true },
	}
}

// Read calls ReadFunc and records the call.
func (m *MockHandle) Read() (image.Image, error) {
	m.mu.Lock()
	m.readCalls++
	m.mu.Unlock()
	if m.ReadFunc != nil {
		return m.ReadFunc()
	}
	return nil, ErrNoFrame
}

// Ready calls ReadyFunc.
func (m *MockHandle) Ready() bool {
	if m.ReadyFunc != nil {
		return m.ReadyFunc()
	}
	return false
}

// ReadCalls returns how many times Read was invoked.
func (m *MockHandle) ReadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readCalls
}

var (
	_ Source = (*MockSource)(nil)
	_ Handle = (*MockHandle)(nil)
)
