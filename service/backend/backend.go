package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/service/runner"
	"github.com/viant/navigator/service/sample"
)

// ConvertRequest describes one conversion attempt.
type ConvertRequest struct {
	ModelName  string
	Framework  string
	Descriptor *format.Descriptor
	// Model is the in-process source model, nil for external models
	Model runner.Runner
	// Source is the conversion input location: parent artifact model path or external model location
	Source string
	// Parent is the parent format, empty when converting the source model
	Parent format.ID
	// TempDir is the attempt scratch directory the artifact is produced into
	TempDir string
	// OutputDir is the final format directory
	OutputDir string
	Workspace string
	BatchDim  *int
	Samples   *sample.Store
	Group     string
	Attempt   int
}

// LoadRequest describes loading a produced artifact for inference.
type LoadRequest struct {
	ModelName  string
	Descriptor *format.Descriptor
	// Dir is the format directory
	Dir string
	// Model is the in-process source model, used to re-hydrate parametric models
	Model     runner.Runner
	TempDir   string
	Workspace string
	// FS is the package file system, a local one is used when nil
	FS afs.Service
}

// FileSystem returns the package file system.
func (r *LoadRequest) FileSystem() afs.Service {
	if r.FS == nil {
		return afs.New()
	}
	return r.FS
}

// ModelPath returns the artifact model location.
func (r *LoadRequest) ModelPath() string {
	return joinModel(r.Dir, r.Descriptor)
}

// Backend converts a model into a format and loads the produced artifact.
type Backend interface {
	Format() format.ID
	Convert(ctx context.Context, request *ConvertRequest) error
	Load(ctx context.Context, request *LoadRequest) (runner.Runner, error)
}

// Producer is implemented by backends describing the command that produced an artifact.
type Producer interface {
	Producer() string
}

// Registry holds backends keyed by format id.
type Registry struct {
	mux      sync.RWMutex
	backends map[format.ID]Backend
}

// Register adds or replaces a backend.
func (r *Registry) Register(backend Backend) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.backends[backend.Format()] = backend
}

// Lookup returns a backend for the format.
func (r *Registry) Lookup(id format.ID) (Backend, error) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret, ok := r.backends[id]
	if !ok {
		return nil, fmt.Errorf("no backend registered for format: %v", id)
	}
	return ret, nil
}

// Has returns true if a backend for the format was registered.
func (r *Registry) Has(id format.ID) bool {
	r.mux.RLock()
	defer r.mux.RUnlock()
	_, ok := r.backends[id]
	return ok
}

// IDs returns registered format ids sorted.
func (r *Registry) IDs() []format.ID {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]format.ID, 0, len(r.backends))
	for id := range r.backends {
		ret = append(ret, id)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// NewRegistry creates a registry with backends.
func NewRegistry(backends ...Backend) *Registry {
	ret := &Registry{backends: map[format.ID]Backend{}}
	for _, backend := range backends {
		ret.Register(backend)
	}
	return ret
}
