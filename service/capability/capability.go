package capability

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/navigator/service/shell"
)

// Framework names
const (
	Go           = "go"
	Torch        = "torch"
	TensorFlow   = "tensorflow"
	Transformers = "transformers"
	JAX          = "jax"
	ONNX         = "onnx"
	ONNXRuntime  = "onnxruntime"
)

// Probed lists frameworks probed through the python interpreter.
var Probed = []string{Torch, TensorFlow, Transformers, JAX, ONNX, ONNXRuntime}

// Capability describes one framework availability.
type Capability struct {
	Name      string `json:"name" yaml:"name"`
	Available bool   `json:"available" yaml:"available"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Prober returns a framework version or an error when it is not available.
type Prober func(ctx context.Context, name string) (string, error)

// Registry probes framework availability once and serves cached answers.
type Registry struct {
	once   sync.Once
	prober Prober
	logger *log.Logger
	items  map[string]*Capability
}

func (r *Registry) load() {
	r.once.Do(func() {
		r.items = map[string]*Capability{Go: {Name: Go, Available: true, Version: runtime.Version()}}
		ctx := context.Background()
		for _, name := range Probed {
			version, err := r.prober(ctx, name)
			item := &Capability{Name: name, Available: err == nil, Version: version}
			r.items[name] = item
			if err != nil {
				r.logger.Printf("capability %v: not available: %v", name, err)
				continue
			}
			r.logger.Printf("capability %v: available, version %v", name, version)
		}
	})
}

// IsAvailable returns framework availability.
func (r *Registry) IsAvailable(name string) bool {
	r.load()
	item, ok := r.items[name]
	return ok && item.Available
}

// Lookup returns a capability.
func (r *Registry) Lookup(name string) (*Capability, bool) {
	r.load()
	item, ok := r.items[name]
	if !ok {
		return nil, false
	}
	clone := *item
	return &clone, true
}

// List returns all capabilities sorted by name.
func (r *Registry) List() []*Capability {
	r.load()
	ret := make([]*Capability, 0, len(r.items))
	for _, item := range r.items {
		clone := *item
		ret = append(ret, &clone)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

// PythonProber imports the module with python3 and prints its version.
func PythonProber(interpreter string) Prober {
	if interpreter == "" {
		interpreter = "python3"
	}
	srv := shell.New(nil)
	return func(ctx context.Context, name string) (string, error) {
		script := fmt.Sprintf("import %v; print(getattr(%v, '__version__', 'unknown'))", name, name)
		output, err := srv.Run(ctx, &shell.Command{
			Commands:  []string{interpreter + " -c \"" + script + "\" 2>&1"},
			TimeoutMs: int((30 * time.Second).Milliseconds()),
		})
		if err != nil {
			return "", err
		}
		lines := strings.Split(strings.TrimSpace(output.Stdout), "\n")
		return strings.TrimSpace(lines[len(lines)-1]), nil
	}
}

// Option represents registry option
type Option func(r *Registry)

// WithProber overrides framework probing.
func WithProber(prober Prober) Option {
	return func(r *Registry) {
		r.prober = prober
	}
}

// WithLogger sets registry logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry; probes run on the first query.
func New(options ...Option) *Registry {
	ret := &Registry{prober: PythonProber(""), logger: log.Default()}
	for _, option := range options {
		option(ret)
	}
	return ret
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

// IsTorchAvailable reports whether PyTorch can be imported.
func IsTorchAvailable() bool { return Default().IsAvailable(Torch) }

// IsTFAvailable reports whether TensorFlow can be imported.
func IsTFAvailable() bool { return Default().IsAvailable(TensorFlow) }

// IsHFAvailable reports whether HuggingFace transformers can be imported.
func IsHFAvailable() bool { return Default().IsAvailable(Transformers) }

// IsJAXAvailable reports whether JAX can be imported.
func IsJAXAvailable() bool { return Default().IsAvailable(JAX) }

// IsONNXAvailable reports whether both onnx and onnxruntime can be imported.
func IsONNXAvailable() bool {
	return Default().IsAvailable(ONNX) && Default().IsAvailable(ONNXRuntime)
}
