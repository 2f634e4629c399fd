// Package model loads the pretrained gesture classifier and runs inference on it.
//
// Loading goes through an ordered list of strategies (see Loader). The first
// strategy that produces a usable Model wins; a Handle caches the outcome so the
// artifact is opened at most once per process.
package model

import (
	"errors"

	"github.com/ayusman/suit/internal/vision"
)

var (
	// ErrNoUsableModel is returned when every load strategy failed.
	ErrNoUsableModel = errors.New("no usable model")

	// ErrInference wraps runtime failures while running the model.
	ErrInference = errors.New("inference failed")

	// ErrNotLoaded is returned by Handle accessors before a successful load.
	ErrNotLoaded = errors.New("model not loaded")
)

// Model is a loaded classifier artifact.
type Model interface {
	// Predict returns one score per class for a single preprocessed image.
	Predict(t vision.Tensor) ([]float32, error)
	NumClasses() int
	InputShape() []int64
	OutputShape() []int64
	Close() error
}

// Backend opens model artifacts.
type Backend interface {
	Open(path string, opts OpenOptions) (Model, error)
}

// OpenOptions controls how a Backend reads an artifact.
type OpenOptions struct {
	// Shims are applied to the tensor signature for this call only.
	Shims []Shim

	// UseRegistry applies every shim in the process-wide registry.
	UseRegistry bool

	// IgnoreSidecar skips the <model>.json signature file and uses the
	// signature declared by the artifact itself.
	IgnoreSidecar bool
}

// TensorSpec names a model input or output and its shape.
// Dimensions <= 0 are symbolic and must be resolved before a session is built.
type TensorSpec struct {
	Name  string  `json:"name"`
	Shape []int64 `json:"shape"`
}

// Signature is the input/output contract of an artifact.
type Signature struct {
	Input   TensorSpec `json:"input"`
	Output  TensorSpec `json:"output"`
	Classes []string   `json:"classes,omitempty"`
}

// Clone returns a deep copy so shims never mutate a shared signature.
func (s Signature) Clone() Signature {
	out := s
	out.Input.Shape = append([]int64(nil), s.Input.Shape...)
	out.Output.Shape = append([]int64(nil), s.Output.Shape...)
	out.Classes = append([]string(nil), s.Classes...)
	return out
}
