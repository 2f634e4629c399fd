package model

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ayusman/suit/internal/vision"
)

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment initializes the onnxruntime library once per process.
func initEnvironment(libraryPath string) error {
	envOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("initialize onnxruntime: %w", err)
		}
	})
	return envErr
}

// ONNXBackend opens ONNX artifacts with onnxruntime.
type ONNXBackend struct {
	// LibraryPath is the onnxruntime shared library. Empty uses the platform default.
	LibraryPath string

	// Registry supplies shims when OpenOptions.UseRegistry is set.
	// Nil uses the process-wide registry.
	Registry *Registry
}

// Signature resolves the tensor signature Open would use for path.
func (b *ONNXBackend) Signature(path string, opts OpenOptions) (Signature, error) {
	sig, err := b.declaredSignature(path, opts)
	if err != nil {
		return Signature{}, err
	}

	shims := append([]Shim(nil), opts.Shims...)
	if opts.UseRegistry {
		reg := b.Registry
		if reg == nil {
			reg = defaultRegistry
		}
		shims = append(shims, reg.Shims()...)
	}
	sig = ApplyShims(sig, shims)

	if err := sig.Validate(); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

func (b *ONNXBackend) declaredSignature(path string, opts OpenOptions) (Signature, error) {
	if !opts.IgnoreSidecar {
		sig, err := ReadSidecar(SidecarPath(path))
		if err == nil {
			return sig, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Signature{}, err
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return Signature{}, fmt.Errorf("inspect %s: %w", path, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return Signature{}, fmt.Errorf("inspect %s: model declares no inputs or outputs", path)
	}

	sig := Signature{
		Input:  TensorSpec{Name: inputs[0].Name, Shape: append([]int64(nil), inputs[0].Dimensions...)},
		Output: TensorSpec{Name: outputs[0].Name, Shape: append([]int64(nil), outputs[0].Dimensions...)},
	}
	if opts.IgnoreSidecar {
		sig.Input = resolveBatch(sig.Input)
		sig.Output = resolveBatch(sig.Output)
	}
	return sig, nil
}

// Open implements Backend.
func (b *ONNXBackend) Open(path string, opts OpenOptions) (Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	if err := initEnvironment(b.LibraryPath); err != nil {
		return nil, err
	}

	sig, err := b.Signature(path, opts)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{sig.Input.Name}, []string{sig.Output.Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &onnxModel{session: session, sig: sig}, nil
}

type onnxModel struct {
	session *ort.DynamicAdvancedSession
	sig     Signature
}

func (m *onnxModel) Predict(t vision.Tensor) ([]float32, error) {
	want := 1
	for _, d := range m.sig.Input.Shape {
		want *= int(d)
	}
	if len(t.Data) != want {
		return nil, fmt.Errorf("%w: input has %d values, model expects %v", ErrInference, len(t.Data), m.sig.Input.Shape)
	}

	in, err := ort.NewTensor(ort.NewShape(m.sig.Input.Shape...), t.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: input tensor: %w", ErrInference, err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(m.sig.Output.Shape...))
	if err != nil {
		return nil, fmt.Errorf("%w: output tensor: %w", ErrInference, err)
	}
	defer out.Destroy()

	if err := m.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	scores := make([]float32, m.NumClasses())
	copy(scores, out.GetData())
	return scores, nil
}

func (m *onnxModel) NumClasses() int      { return m.sig.NumClasses() }
func (m *onnxModel) InputShape() []int64  { return append([]int64(nil), m.sig.Input.Shape...) }
func (m *onnxModel) OutputShape() []int64 { return append([]int64(nil), m.sig.Output.Shape...) }

func (m *onnxModel) Close() error {
	return m.session.Destroy()
}
