package sample

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/navigator/model/tensor"
)

const (
	// Suffix is the archive suffix of every sample file.
	Suffix = ".npz"
	// InputFolder holds captured model inputs.
	InputFolder = "model_input"
	// OutputFolder holds captured reference outputs.
	OutputFolder = "model_output"
	// DefaultGroup is the sample group used for correctness checks.
	DefaultGroup = "correctness"
	// ParamsPrefix prefixes parameter tensors stored alongside inputs.
	ParamsPrefix = "params."
)

// Store reads and writes per-sample archives under a package directory.
type Store struct {
	fs      afs.Service
	baseURL string
}

// InputDir returns the input archive directory of a group.
func (s *Store) InputDir(group string) string {
	return url.Join(s.baseURL, InputFolder, group)
}

// OutputDir returns the output archive directory of a group.
func (s *Store) OutputDir(group string) string {
	return url.Join(s.baseURL, OutputFolder, group)
}

// FileName returns the archive name of a sample index.
func FileName(index int) string {
	return strconv.Itoa(index) + Suffix
}

// WriteInput persists sample inputs and parameters.
func (s *Store) WriteInput(ctx context.Context, group string, sample *tensor.Sample) error {
	tensors := make(tensor.Tensors, 0, len(sample.Inputs)+len(sample.Params))
	tensors = append(tensors, sample.Inputs...)
	for _, param := range sample.Params {
		clone := *param
		clone.Name = ParamsPrefix + param.Name
		tensors = append(tensors, &clone)
	}
	return s.write(ctx, group, s.InputDir(group), sample.Index, tensors)
}

// WriteOutput persists reference outputs of a sample.
func (s *Store) WriteOutput(ctx context.Context, group string, index int, outputs tensor.Tensors) error {
	return s.write(ctx, group, s.OutputDir(group), index, outputs)
}

func (s *Store) write(ctx context.Context, group, dir string, index int, tensors tensor.Tensors) error {
	if err := validateGroup(group); err != nil {
		return err
	}
	data, err := Encode(tensors)
	if err != nil {
		return fmt.Errorf("failed to encode sample %d: %w", index, err)
	}
	URL := url.Join(dir, FileName(index))
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %v: %w", URL, err)
	}
	return nil
}

// ReadInput loads a sample, splitting parameters from inputs.
func (s *Store) ReadInput(ctx context.Context, group string, index int) (*tensor.Sample, error) {
	tensors, err := s.read(ctx, s.InputDir(group), index)
	if err != nil {
		return nil, err
	}
	return Split(index, tensors), nil
}

// ReadOutput loads reference outputs of a sample.
func (s *Store) ReadOutput(ctx context.Context, group string, index int) (tensor.Tensors, error) {
	return s.read(ctx, s.OutputDir(group), index)
}

func (s *Store) read(ctx context.Context, dir string, index int) (tensor.Tensors, error) {
	URL := url.Join(dir, FileName(index))
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", URL, err)
	}
	ret, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %v: %w", URL, err)
	}
	return ret, nil
}

// Indexes returns sorted sample indexes present in the group's input directory.
func (s *Store) Indexes(ctx context.Context, group string) ([]int, error) {
	return ListIndexes(ctx, s.fs, s.InputDir(group))
}

// Count returns number of captured samples in a group.
func (s *Store) Count(ctx context.Context, group string) (int, error) {
	indexes, err := s.Indexes(ctx, group)
	return len(indexes), err
}

// ListIndexes returns sorted indexes of <idx>.npz files in dir.
func ListIndexes(ctx context.Context, fs afs.Service, dir string) ([]int, error) {
	objects, err := fs.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %v: %w", dir, err)
	}
	var ret []int
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), Suffix) {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSuffix(object.Name(), Suffix))
		if err != nil {
			continue
		}
		ret = append(ret, index)
	}
	sort.Ints(ret)
	return ret, nil
}

// Split separates parameter tensors (params.<name>) from inputs.
func Split(index int, tensors tensor.Tensors) *tensor.Sample {
	ret := &tensor.Sample{Index: index}
	for _, item := range tensors {
		if name, ok := strings.CutPrefix(item.Name, ParamsPrefix); ok {
			clone := *item
			clone.Name = name
			ret.Params = append(ret.Params, &clone)
			continue
		}
		ret.Inputs = append(ret.Inputs, item)
	}
	return ret
}

func validateGroup(group string) error {
	if group == "" || group == "." || strings.ContainsAny(group, `/\`) {
		return fmt.Errorf("invalid sample group: %q", group)
	}
	return nil
}

// NewStore creates a sample store rooted at the package directory.
func NewStore(fs afs.Service, baseURL string) *Store {
	return &Store{fs: fs, baseURL: baseURL}
}
