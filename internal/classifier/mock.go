package classifier

import (
	"sync"

	"github.com/ayusman/suit/internal/gesture"
	"github.com/ayusman/suit/internal/vision"
)

// MockPredictor is a test implementation of the Predictor interface.
// It allows tests to control the classification results.
type MockPredictor struct {
	mu     sync.Mutex
	name   string
	result Result
	err    error
	calls  int
}

// NewMockPredictor creates a MockPredictor that reports name as its stage.
func NewMockPredictor(name string) *MockPredictor {
	return &MockPredictor{
		name:   name,
		result: Result{Label: gesture.Rock, Confidence: 0.9, Source: name},
	}
}

// SetResult sets the result that will be returned by Predict.
func (m *MockPredictor) SetResult(label gesture.Label, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = Result{Label: label, Confidence: confidence, Source: m.name}
}

// SetError sets the error that will be returned by Predict.
func (m *MockPredictor) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Predict calls.
func (m *MockPredictor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockPredictor) Name() string { return m.name }

// Predict returns the pre-configured result or error.
func (m *MockPredictor) Predict(vision.Image) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}
	return m.result, nil
}

// Sequence returns predefined results in order, repeating the last one.
// It is used to script a game in tests and demos.
type Sequence struct {
	mu      sync.Mutex
	results []Result
	next    int
}

// NewSequence creates a Sequence over results.
func NewSequence(results ...Result) *Sequence {
	return &Sequence{results: results}
}

// Predict implements Classify.
func (s *Sequence) Predict(vision.Image) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return Result{Label: gesture.Unknown, Source: SourceHeuristic}
	}
	r := s.results[s.next]
	if s.next < len(s.results)-1 {
		s.next++
	}
	return r
}
