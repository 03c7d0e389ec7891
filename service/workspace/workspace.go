package workspace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/navigator/internal/idgen"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/service/sample"
)

// Package layout
const (
	Suffix       = ".nav.workspace"
	ManifestFile = "status.yaml"
	LogFile      = "navigator.log"
	TempFolder   = ".tmp"
)

// Workspace manages the package directory of one export run.
type Workspace struct {
	fs      afs.Service
	dir     string
	mux     sync.Mutex
	written bool
	log     io.WriteCloser
}

// Dir returns package directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Prepare creates the package directory. A non-empty existing package is replaced only
// with override, otherwise WorkspaceExistsError is returned before anything is modified.
func (w *Workspace) Prepare(ctx context.Context, override bool) error {
	exists, err := w.fs.Exists(ctx, w.dir)
	if err != nil {
		return fmt.Errorf("failed to check workspace %v: %w", w.dir, err)
	}
	if exists {
		empty, err := w.isEmptyDir(ctx)
		if err != nil {
			return err
		}
		if !empty {
			if !override {
				return &WorkspaceExistsError{Path: w.dir}
			}
			if err = w.fs.Delete(ctx, w.dir); err != nil {
				return fmt.Errorf("failed to remove workspace %v: %w", w.dir, err)
			}
			exists = false
		}
	}
	if !exists {
		if err = w.fs.Create(ctx, w.dir, file.DefaultDirOsMode, true); err != nil {
			return fmt.Errorf("failed to create workspace %v: %w", w.dir, err)
		}
	}
	return nil
}

func (w *Workspace) isEmptyDir(ctx context.Context) (bool, error) {
	object, err := w.fs.Object(ctx, w.dir)
	if err != nil {
		return false, fmt.Errorf("failed to inspect workspace %v: %w", w.dir, err)
	}
	if !object.IsDir() {
		return false, nil
	}
	objects, err := w.fs.List(ctx, w.dir)
	if err != nil {
		return false, fmt.Errorf("failed to list workspace %v: %w", w.dir, err)
	}
	for _, candidate := range objects {
		if w.isSelf(candidate.URL()) {
			continue
		}
		return false, nil
	}
	return true, nil
}

func (w *Workspace) isSelf(URL string) bool {
	return strings.TrimRight(url.Path(URL), "/") == strings.TrimRight(url.Path(w.dir), "/")
}

// InputDir returns captured inputs directory of a sample group.
func (w *Workspace) InputDir(group string) string {
	return url.Join(w.dir, sample.InputFolder, group)
}

// OutputDir returns captured reference outputs directory of a sample group.
func (w *Workspace) OutputDir(group string) string {
	return url.Join(w.dir, sample.OutputFolder, group)
}

// FormatDir returns format artifact directory.
func (w *Workspace) FormatDir(id format.ID) string {
	return url.Join(w.dir, string(id))
}

// TempDir returns a scratch directory unique per command attempt.
func (w *Workspace) TempDir(name string, attempt int) string {
	name = strings.NewReplacer(":", "-", "/", "-").Replace(name)
	return url.Join(w.dir, TempFolder, fmt.Sprintf("%v-%d-%v", name, attempt, idgen.Short()))
}

// LogPath returns run log location.
func (w *Workspace) LogPath() string {
	return url.Join(w.dir, LogFile)
}

// ManifestPath returns status manifest location.
func (w *Workspace) ManifestPath() string {
	return url.Join(w.dir, ManifestFile)
}

// Samples returns the sample store rooted at the package directory.
func (w *Workspace) Samples() *sample.Store {
	return sample.NewStore(w.fs, w.dir)
}

// OpenLog opens the run log streamed to the package file system; the log is complete
// once Close or Finalize returns. Extra writers (e.g. stderr) receive the same lines.
func (w *Workspace) OpenLog(ctx context.Context, writers ...io.Writer) (*log.Logger, error) {
	w.mux.Lock()
	defer w.mux.Unlock()
	if w.log == nil {
		writer, err := w.fs.NewWriter(context.WithoutCancel(ctx), w.LogPath(), file.DefaultFileOsMode)
		if err != nil {
			return nil, fmt.Errorf("failed to open run log: %w", err)
		}
		w.log = writer
	}
	var out io.Writer = w.log
	if len(writers) > 0 {
		out = io.MultiWriter(append([]io.Writer{w.log}, writers...)...)
	}
	return log.New(out, "", log.LstdFlags|log.Lmicroseconds), nil
}

// WriteManifest writes status.yaml exactly once; the manifest becomes visible atomically.
func (w *Workspace) WriteManifest(ctx context.Context, manifest *status.Manifest) error {
	w.mux.Lock()
	defer w.mux.Unlock()
	if w.written {
		return ErrManifestWritten
	}
	if err := manifest.Validate(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	data, err := status.Encode(manifest)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	tempURL := url.Join(w.dir, "."+ManifestFile+"."+idgen.Short())
	if err = w.fs.Upload(ctx, tempURL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err = w.fs.Move(ctx, tempURL, w.ManifestPath()); err != nil {
		_ = w.fs.Delete(ctx, tempURL)
		return fmt.Errorf("failed to publish manifest: %w", err)
	}
	w.written = true
	return nil
}

// Finalize removes scratch data and closes the run log.
func (w *Workspace) Finalize(ctx context.Context) error {
	tempDir := url.Join(w.dir, TempFolder)
	if exists, _ := w.fs.Exists(ctx, tempDir); exists {
		if err := w.fs.Delete(ctx, tempDir); err != nil {
			return fmt.Errorf("failed to remove %v: %w", tempDir, err)
		}
	}
	return w.Close()
}

// Close closes the run log.
func (w *Workspace) Close() error {
	w.mux.Lock()
	defer w.mux.Unlock()
	if w.log == nil {
		return nil
	}
	err := w.log.Close()
	w.log = nil
	return err
}

// Layout returns the sorted package file list relative to the package directory.
func (w *Workspace) Layout(ctx context.Context) ([]string, error) {
	return Layout(ctx, w.fs, w.dir)
}

// Layout returns the sorted file list of dir relative to dir.
func Layout(ctx context.Context, fs afs.Service, dir string) ([]string, error) {
	objects, err := fs.List(ctx, dir, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list %v: %w", dir, err)
	}
	base := strings.TrimRight(url.Path(dir), "/") + "/"
	var ret []string
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		ret = append(ret, strings.TrimPrefix(url.Path(object.URL()), base))
	}
	sort.Strings(ret)
	return ret, nil
}

// LoadManifest reads and validates status.yaml from a package directory.
func LoadManifest(ctx context.Context, fs afs.Service, dir string) (*status.Manifest, error) {
	URL := url.Join(dir, ManifestFile)
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", URL, err)
	}
	return status.Decode(data)
}

// PackageDir returns the package directory for a model name.
func PackageDir(workdir, modelName string) string {
	return url.Join(workdir, modelName+Suffix)
}

// New creates a workspace for modelName under workdir.
func New(fs afs.Service, workdir, modelName string) (*Workspace, error) {
	if workdir == "" {
		return nil, fmt.Errorf("workdir was empty")
	}
	if modelName == "" || modelName == "." || modelName == ".." || strings.ContainsAny(modelName, `/\`) {
		return nil, fmt.Errorf("invalid model name: %q", modelName)
	}
	return &Workspace{fs: fs, dir: PackageDir(workdir, modelName)}, nil
}
