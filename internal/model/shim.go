package model

import (
	"sort"
	"sync"
)

// AllTensors is the Shim target that matches every tensor.
const AllTensors = "*"

// Shim rewrites a tensor spec before the runtime session is constructed.
// It lets artifacts written by older exporters load on the current runtime.
type Shim struct {
	Name   string
	Target string
	Fix    func(TensorSpec) TensorSpec
}

func (s Shim) matches(name string) bool {
	return s.Target == AllTensors || s.Target == name
}

// StripDynamicDims returns a shim that replaces symbolic dimensions (<= 0)
// with 1 on the target tensor.
func StripDynamicDims(target string) Shim {
	return Shim{
		Name:   "strip-dynamic-dims",
		Target: target,
		Fix: func(spec TensorSpec) TensorSpec {
			shape := make([]int64, len(spec.Shape))
			for i, d := range spec.Shape {
				if d <= 0 {
					d = 1
				}
				shape[i] = d
			}
			spec.Shape = shape
			return spec
		},
	}
}

// ApplyShims returns a copy of sig with every matching shim applied in order.
func ApplyShims(sig Signature, shims []Shim) Signature {
	out := sig.Clone()
	for _, s := range shims {
		if s.Fix == nil {
			continue
		}
		if s.matches(out.Input.Name) {
			out.Input = s.Fix(out.Input)
		}
		if s.matches(out.Output.Name) {
			out.Output = s.Fix(out.Output)
		}
	}
	return out
}

// Registry is a set of shims keyed by name and target.
type Registry struct {
	mu    sync.RWMutex
	shims map[string]Shim
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{shims: make(map[string]Shim)}
}

func registryKey(s Shim) string {
	return s.Name + "@" + s.Target
}

// Register adds s, replacing any shim with the same name and target.
func (r *Registry) Register(s Shim) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shims[registryKey(s)] = s
}

// Unregister removes the shim with the given name and target.
func (r *Registry) Unregister(name, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.shims, name+"@"+target)
}

// Shims returns the registered shims ordered by key.
func (r *Registry) Shims() []Shim {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.shims))
	for k := range r.shims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Shim, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.shims[k])
	}
	return out
}

var defaultRegistry = NewRegistry()

// RegisterShim adds s to the process-wide registry.
func RegisterShim(s Shim) {
	defaultRegistry.Register(s)
}

// UnregisterShim removes a shim from the process-wide registry.
func UnregisterShim(name, target string) {
	defaultRegistry.Unregister(name, target)
}

// RegisteredShims lists the process-wide shims.
func RegisteredShims() []Shim {
	return defaultRegistry.Shims()
}
