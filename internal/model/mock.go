package model

import (
	"sync"

	"github.com/ayusman/suit/internal/vision"
)

// MockModel returns fixed scores. It is used when no runtime is available and in tests.
type MockModel struct {
	mu     sync.Mutex
	scores []float32
	err    error
	calls  int
	closed bool
}

// NewMockModel creates a MockModel that always returns scores.
func NewMockModel(scores ...float32) *MockModel {
	return &MockModel{scores: scores}
}

// SetScores changes the scores returned by later Predict calls.
func (m *MockModel) SetScores(scores ...float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = scores
}

// SetError makes later Predict calls fail with err.
func (m *MockModel) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Predict ran.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockModel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockModel) Predict(vision.Tensor) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]float32(nil), m.scores...), nil
}

func (m *MockModel) NumClasses() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scores)
}

func (m *MockModel) InputShape() []int64 {
	return []int64{1, vision.InputSize, vision.InputSize, 3}
}

func (m *MockModel) OutputShape() []int64 {
	return []int64{1, int64(m.NumClasses())}
}

func (m *MockModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// StaticStrategy returns a strategy that always yields m.
func StaticStrategy(name string, m Model) Strategy {
	return Strategy{
		Name: name,
		Open: func(string) (Model, error) { return m, nil },
	}
}
