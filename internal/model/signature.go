package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrDynamicShape is returned for a signature that still has symbolic dimensions.
var ErrDynamicShape = errors.New("signature has dynamic dimensions")

// SidecarPath returns the signature file that accompanies an artifact:
// model.onnx -> model.json.
func SidecarPath(modelPath string) string {
	return strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".json"
}

// ReadSidecar reads a signature file. It returns os.ErrNotExist (wrapped) when
// the artifact has no sidecar.
func ReadSidecar(path string) (Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Signature{}, fmt.Errorf("read signature: %w", err)
	}

	var sig Signature
	if err := json.Unmarshal(data, &sig); err != nil {
		return Signature{}, fmt.Errorf("parse signature %s: %w", path, err)
	}
	if sig.Input.Name == "" || sig.Output.Name == "" {
		return Signature{}, fmt.Errorf("signature %s: input and output names are required", path)
	}
	if len(sig.Input.Shape) == 0 || len(sig.Output.Shape) == 0 {
		return Signature{}, fmt.Errorf("signature %s: input and output shapes are required", path)
	}
	return sig, nil
}

// Validate checks that every dimension of both tensors is concrete.
func (s Signature) Validate() error {
	for _, spec := range []TensorSpec{s.Input, s.Output} {
		for i, d := range spec.Shape {
			if d <= 0 {
				return fmt.Errorf("%w: %s dim %d is %d", ErrDynamicShape, spec.Name, i, d)
			}
		}
	}
	return nil
}

// resolveBatch fixes a symbolic leading batch dimension to 1. Any other
// symbolic dimension is left for Validate to reject.
func resolveBatch(spec TensorSpec) TensorSpec {
	if len(spec.Shape) == 0 || spec.Shape[0] > 0 {
		return spec
	}
	shape := append([]int64(nil), spec.Shape...)
	shape[0] = 1
	spec.Shape = shape
	return spec
}

// NumClasses returns the size of the last output dimension.
func (s Signature) NumClasses() int {
	if len(s.Output.Shape) == 0 {
		return 0
	}
	return int(s.Output.Shape[len(s.Output.Shape)-1])
}
