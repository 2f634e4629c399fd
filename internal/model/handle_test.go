package model

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/suit/internal/gesture"
)

type countingStrategy struct {
	mu    sync.Mutex
	calls int
	model Model
	err   error
}

func (c *countingStrategy) strategy(name string) Strategy {
	return Strategy{Name: name, Open: func(string) (Model, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.calls++
		if c.err != nil {
			return nil, c.err
		}
		return c.model, nil
	}}
}

func (c *countingStrategy) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func writeLabels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHandle_SecondStrategyLoadsOnce(t *testing.T) {
	first := &countingStrategy{err: errors.New("unknown layer")}
	m := NewMockModel(0.1, 0.8, 0.1)
	second := &countingStrategy{model: m}

	h := NewHandle(HandleConfig{
		ModelPath:  "model.onnx",
		LabelsPath: writeLabels(t, "0 rock\n1 scissors\n2 paper\n"),
		Loader:     NewLoader(zerolog.Nop(), first.strategy("one"), second.strategy("two")),
		Logger:     zerolog.Nop(),
	})
	assert.Equal(t, Unloaded, h.State())

	for i := 0; i < 5; i++ {
		got, err := h.Ensure()
		require.NoError(t, err)
		assert.Same(t, m, got)
	}

	assert.Equal(t, Loaded, h.State())
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())

	info := h.Info()
	assert.True(t, info.Loaded)
	assert.Equal(t, "two", info.Strategy)
	assert.Equal(t, 3, info.NumClasses)
	assert.Equal(t, []string{"rock", "scissors", "paper"}, info.Labels)
}

func TestHandle_FailureIsCached(t *testing.T) {
	s := &countingStrategy{err: errors.New("corrupt")}
	h := NewHandle(HandleConfig{
		ModelPath: "model.onnx",
		Loader:    NewLoader(zerolog.Nop(), s.strategy("only")),
		Logger:    zerolog.Nop(),
	})

	for i := 0; i < 3; i++ {
		_, err := h.Ensure()
		assert.True(t, errors.Is(err, ErrNoUsableModel))
	}
	assert.Equal(t, Failed, h.State())
	assert.Equal(t, 1, s.count())

	info := h.Info()
	assert.False(t, info.Loaded)
	assert.Equal(t, "failed", info.State)
	assert.NotEmpty(t, info.Error)
	assert.Equal(t, []string{"rock", "scissors", "paper"}, info.Labels)
}

func TestHandle_ConcurrentEnsureLoadsOnce(t *testing.T) {
	s := &countingStrategy{model: NewMockModel(1, 0, 0)}
	h := NewHandle(HandleConfig{
		Loader: NewLoader(zerolog.Nop(), s.strategy("only")),
		Logger: zerolog.Nop(),
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.Ensure()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, s.count())
	assert.Equal(t, Loaded, h.State())
}

func TestHandle_Labels(t *testing.T) {
	t.Run("shorter than class count uses defaults", func(t *testing.T) {
		h := NewHandle(HandleConfig{
			LabelsPath: writeLabels(t, "0 paper\n1 rock\n"),
			Loader:     NewLoader(zerolog.Nop(), StaticStrategy("s", NewMockModel(0.2, 0.3, 0.5))),
			Logger:     zerolog.Nop(),
		})
		_, err := h.Ensure()
		require.NoError(t, err)
		assert.Equal(t, gesture.DefaultLabels(), h.Labels())
	})

	t.Run("file order is kept", func(t *testing.T) {
		h := NewHandle(HandleConfig{
			LabelsPath: writeLabels(t, "0 paper\n1 rock\n2 scissors\n"),
			Loader:     NewLoader(zerolog.Nop(), StaticStrategy("s", NewMockModel(0.2, 0.3, 0.5))),
			Logger:     zerolog.Nop(),
		})
		_, err := h.Ensure()
		require.NoError(t, err)
		assert.Equal(t, gesture.LabelTable{gesture.Paper, gesture.Rock, gesture.Scissors}, h.Labels())
	})

	t.Run("loaded even when the model fails", func(t *testing.T) {
		h := NewHandle(HandleConfig{
			LabelsPath: writeLabels(t, "kertas\nbatu\ngunting\n"),
			Loader:     NewLoader(zerolog.Nop(), failing("s", errors.New("nope"))),
			Logger:     zerolog.Nop(),
		})
		_, err := h.Ensure()
		require.Error(t, err)
		assert.Equal(t, gesture.LabelTable{gesture.Paper, gesture.Rock, gesture.Scissors}, h.Labels())
	})

	t.Run("defaults before load", func(t *testing.T) {
		h := NewHandle(HandleConfig{Logger: zerolog.Nop()})
		assert.Equal(t, gesture.DefaultLabels(), h.Labels())
	})
}

func TestHandle_MarkFailed(t *testing.T) {
	s := &countingStrategy{model: NewMockModel(1, 0, 0)}
	h := NewHandle(HandleConfig{
		Loader: NewLoader(zerolog.Nop(), s.strategy("only")),
		Logger: zerolog.Nop(),
	})

	h.MarkFailed(errors.New("forced"))
	assert.Equal(t, Failed, h.State())

	_, err := h.Ensure()
	assert.True(t, errors.Is(err, ErrNoUsableModel))
	assert.Equal(t, 0, s.count())

	_, err = h.Model()
	assert.Error(t, err)
}

func TestHandle_ModelBeforeLoad(t *testing.T) {
	h := NewHandle(HandleConfig{Logger: zerolog.Nop()})
	_, err := h.Model()
	assert.True(t, errors.Is(err, ErrNotLoaded))
}

func TestHandle_Close(t *testing.T) {
	m := NewMockModel(1, 0, 0)
	h := NewHandle(HandleConfig{
		Loader: NewLoader(zerolog.Nop(), StaticStrategy("s", m)),
		Logger: zerolog.Nop(),
	})
	_, err := h.Ensure()
	require.NoError(t, err)

	require.NoError(t, h.Close())
	assert.True(t, m.Closed())
	assert.Equal(t, Failed, h.State())
	require.NoError(t, h.Close())
}
