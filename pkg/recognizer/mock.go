package recognizer

import (
	"context"
	"sync"
)

// MockPredictor is a mock implementation of Predictor for testing.
type MockPredictor struct {
	// Configurable behavior
	PredictFunc func(ctx context.Context, frame []byte) (Prediction, error)
	LoadedFunc  func() bool
	CloseFunc   func() error

	mu           sync.Mutex
	predictCalls int
}

// NewMockPredictor creates a mock predictor that reports loaded and sees
// no hands until PredictFunc is set.
func NewMockPredictor() *MockPredictor {
	return &MockPredictor{}
}

// Predict implements Predictor.
func (m *MockPredictor) Predict(ctx context.Context, frame []byte) (Prediction, error) {
	m.mu.Lock()
	m.predictCalls++
	m.mu.Unlock()

	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, frame)
	}
	return Prediction{}, nil
}

// Loaded implements Predictor.
func (m *MockPredictor) Loaded() bool {
	if m.LoadedFunc != nil {
		return m.LoadedFunc()
	}
	return true
}

// Close implements Predictor.
func (m *MockPredictor) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// PredictCalls returns how many times Predict ran.
func (m *MockPredictor) PredictCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictCalls
}

// Ensure MockPredictor implements Predictor.
var _ Predictor = (*MockPredictor)(nil)

// MockAnalyzer is a mock implementation of Analyzer for testing.
type MockAnalyzer struct {
	// AnalyzeFunc overrides the default echo behavior.
	AnalyzeFunc func(ctx context.Context, sentence string) (string, error)

	mu       sync.Mutex
	analyzed []string
}

// NewMockAnalyzer creates a mock analyzer that echoes its input.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// Analyze implements Analyzer.
func (m *MockAnalyzer) Analyze(ctx context.Context, sentence string) (string, error) {
	m.mu.Lock()
	m.analyzed = append(m.analyzed, sentence)
	m.mu.Unlock()

	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, sentence)
	}
	return sentence, nil
}

// Analyzed returns a copy of the sentences handed to the analyzer.
func (m *MockAnalyzer) Analyzed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.analyzed))
	copy(out, m.analyzed)
	return out
}

// Ensure MockAnalyzer implements Analyzer.
var _ Analyzer = (*MockAnalyzer)(nil)
