package model

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// reasonLimit bounds how much of a strategy error is logged.
const reasonLimit = 100

// Strategy is one way of opening a model artifact.
type Strategy struct {
	Name string
	Open func(path string) (Model, error)
}

// DefaultStrategies returns the standard ordered strategies for b:
//
//  1. per-call-shim: open with the dynamic-dimension shim passed for this call
//  2. registered-shim: register the shim process-wide, then open using the registry
//  3. defaults: open with the artifact's own signature, no sidecar, no shims
func DefaultStrategies(b Backend) []Strategy {
	shim := StripDynamicDims(AllTensors)
	return []Strategy{
		{
			Name: "per-call-shim",
			Open: func(path string) (Model, error) {
				return b.Open(path, OpenOptions{Shims: []Shim{shim}})
			},
		},
		{
			Name: "registered-shim",
			Open: func(path string) (Model, error) {
				RegisterShim(shim)
				return b.Open(path, OpenOptions{UseRegistry: true})
			},
		},
		{
			Name: "defaults",
			Open: func(path string) (Model, error) {
				return b.Open(path, OpenOptions{IgnoreSidecar: true})
			},
		},
	}
}

// Loader tries strategies in order until one returns a model.
type Loader struct {
	strategies []Strategy
	logger     zerolog.Logger
}

// NewLoader creates a Loader over the given strategies.
func NewLoader(logger zerolog.Logger, strategies ...Strategy) *Loader {
	return &Loader{
		strategies: strategies,
		logger:     logger,
	}
}

// Strategies returns the configured strategy names in order.
func (l *Loader) Strategies() []string {
	names := make([]string, len(l.strategies))
	for i, s := range l.strategies {
		names[i] = s.Name
	}
	return names
}

// Load returns the first model any strategy opens, with that strategy's name.
// When all fail the error wraps ErrNoUsableModel and every strategy error.
func (l *Loader) Load(path string) (Model, string, error) {
	errs := make([]error, 0, len(l.strategies))
	for _, s := range l.strategies {
		m, err := l.try(s, path)
		if err == nil {
			l.logger.Info().Str("strategy", s.Name).Str("path", path).Msg("model loaded")
			return m, s.Name, nil
		}
		l.logger.Warn().
			Str("strategy", s.Name).
			Str("reason", truncate(err.Error(), reasonLimit)).
			Msg("model load strategy failed")
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no strategies configured"))
	}
	return nil, "", fmt.Errorf("%w: %s: %w", ErrNoUsableModel, path, errors.Join(errs...))
}

// try runs a single strategy, converting panics from the runtime into errors.
func (l *Loader) try(s Strategy, path string) (m Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if s.Open == nil {
		return nil, errors.New("strategy has no opener")
	}
	m, err = s.Open(path)
	if err == nil && m == nil {
		err = errors.New("strategy returned no model")
	}
	return m, err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
