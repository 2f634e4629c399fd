package model

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ayusman/suit/internal/gesture"
)

// State is the load state of a Handle.
type State int32

const (
	Unloaded State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unloaded"
	}
}

// HandleConfig configures a Handle.
type HandleConfig struct {
	ModelPath  string
	LabelsPath string
	Loader     *Loader
	Logger     zerolog.Logger
}

// Handle owns the process's model and label table.
//
// The first Ensure call loads both; the outcome, success or failure, is kept
// for the lifetime of the Handle. Once the state leaves Unloaded, reads do not
// take the lock.
type Handle struct {
	cfg HandleConfig

	mu    sync.Mutex
	state atomic.Int32

	// written under mu before state is published
	model    Model
	labels   gesture.LabelTable
	strategy string
	loadErr  error
	closed   bool
}

// NewHandle creates an unloaded Handle.
func NewHandle(cfg HandleConfig) *Handle {
	if cfg.Loader == nil {
		cfg.Loader = NewLoader(cfg.Logger)
	}
	return &Handle{cfg: cfg}
}

// State returns the current load state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Ensure loads the model and labels if no attempt has been made yet, and
// returns the loaded model. A failed load is returned on every later call
// without retrying.
func (h *Handle) Ensure() (Model, error) {
	switch h.State() {
	case Loaded:
		return h.model, nil
	case Failed:
		return nil, h.loadErr
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.State() {
	case Loaded:
		return h.model, nil
	case Failed:
		return nil, h.loadErr
	}

	labels, err := gesture.LoadLabels(h.cfg.LabelsPath)
	if err != nil {
		h.cfg.Logger.Warn().Err(err).Msg("using default labels")
	}

	m, strategy, err := h.cfg.Loader.Load(h.cfg.ModelPath)
	if err != nil {
		h.labels = labels
		h.loadErr = err
		h.state.Store(int32(Failed))
		h.cfg.Logger.Error().Err(err).Msg("model unavailable")
		return nil, err
	}

	if len(labels) < m.NumClasses() {
		h.cfg.Logger.Warn().
			Int("labels", len(labels)).
			Int("classes", m.NumClasses()).
			Msg("label table shorter than model output, using default labels")
		labels = gesture.DefaultLabels()
	}

	h.model = m
	h.labels = labels
	h.strategy = strategy
	h.state.Store(int32(Loaded))
	return m, nil
}

// Model returns the loaded model without triggering a load.
func (h *Handle) Model() (Model, error) {
	switch h.State() {
	case Loaded:
		return h.model, nil
	case Failed:
		return nil, h.loadErr
	}
	return nil, ErrNotLoaded
}

// Labels returns the label table. Before any load attempt it is the default table.
func (h *Handle) Labels() gesture.LabelTable {
	if h.State() != Unloaded {
		return h.labels
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.labels == nil {
		return gesture.DefaultLabels()
	}
	return h.labels
}

// MarkFailed forces the Handle into the Failed state. The model, if any,
// stays open until Close.
func (h *Handle) MarkFailed(reason error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.State() == Failed {
		return
	}
	if reason == nil {
		reason = ErrNoUsableModel
	}
	if h.labels == nil {
		h.labels = gesture.DefaultLabels()
	}
	h.loadErr = fmt.Errorf("%w: %w", ErrNoUsableModel, reason)
	h.state.Store(int32(Failed))
}

// Info describes the model for status reports.
type Info struct {
	Loaded      bool     `json:"loaded"`
	State       string   `json:"state"`
	Path        string   `json:"path"`
	Strategy    string   `json:"strategy,omitempty"`
	InputShape  []int64  `json:"input_shape,omitempty"`
	OutputShape []int64  `json:"output_shape,omitempty"`
	NumClasses  int      `json:"num_classes"`
	Labels      []string `json:"labels"`
	Error       string   `json:"error,omitempty"`
}

// Info reports the current model state without triggering a load.
func (h *Handle) Info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()

	state := h.State()
	labels := h.labels
	if labels == nil {
		labels = gesture.DefaultLabels()
	}

	info := Info{
		Loaded: state == Loaded,
		State:  state.String(),
		Path:   h.cfg.ModelPath,
		Labels: labels.Strings(),
	}
	if state == Loaded && h.model != nil {
		info.Strategy = h.strategy
		info.InputShape = h.model.InputShape()
		info.OutputShape = h.model.OutputShape()
		info.NumClasses = h.model.NumClasses()
	}
	if state == Failed && h.loadErr != nil {
		info.Error = h.loadErr.Error()
	}
	return info
}

// Close releases the model. Later calls see the Handle as Failed.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.model == nil || h.closed {
		return nil
	}
	if h.State() == Loaded {
		h.loadErr = fmt.Errorf("%w: closed", ErrNotLoaded)
		h.state.Store(int32(Failed))
	}
	h.closed = true
	return h.model.Close()
}
