package dataloader

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/navigator/model/tensor"
	"github.com/viant/navigator/service/sample"
)

// DefaultMaxSamples bounds materialized samples when Options.MaxSamples is not set.
const DefaultMaxSamples = 100

var (
	// ErrEmptyDataloader is returned when the producer yields no samples.
	ErrEmptyDataloader = errors.New("dataloader: no samples produced")
	// ErrInconsistentSample is returned when a sample deviates from the first sample's inputs.
	ErrInconsistentSample = errors.New("dataloader: inconsistent sample")
)

// Options controls normalization.
type Options struct {
	MaxSamples int
	BatchDim   *int
}

// Normalize materializes up to MaxSamples samples from a lazy, possibly infinite producer.
// Unnamed tensors are named input__<i>; the shared params payload is attached to every sample.
func Normalize(ctx context.Context, seq iter.Seq[tensor.Tensors], params tensor.Tensors, options Options) ([]*tensor.Sample, error) {
	if seq == nil {
		return nil, ErrEmptyDataloader
	}
	limit := options.MaxSamples
	if limit <= 0 {
		limit = DefaultMaxSamples
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model params: %w", err)
	}
	var ret []*tensor.Sample
	var err error
	var names []string
	for inputs := range seq {
		if err = ctx.Err(); err != nil {
			break
		}
		index := len(ret)
		item := &tensor.Sample{Index: index, Inputs: nameInputs(inputs.Clone()), Params: params}
		if err = validate(item, options.BatchDim); err != nil {
			break
		}
		sorted := item.Inputs.SortedNames()
		if names == nil {
			names = sorted
		} else if !slices.Equal(names, sorted) {
			err = fmt.Errorf("%w: sample %d inputs %v, expected %v", ErrInconsistentSample, index, sorted, names)
			break
		}
		ret = append(ret, item)
		if len(ret) >= limit {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	if len(ret) == 0 {
		return nil, ErrEmptyDataloader
	}
	return ret, nil
}

func nameInputs(inputs tensor.Tensors) tensor.Tensors {
	for i, input := range inputs {
		if input != nil && input.Name == "" {
			input.Name = "input__" + strconv.Itoa(i)
		}
	}
	return inputs
}

func validate(item *tensor.Sample, batchDim *int) error {
	if len(item.Inputs) == 0 {
		return fmt.Errorf("%w: sample %d has no inputs", ErrInconsistentSample, item.Index)
	}
	for _, input := range item.Inputs {
		if input == nil {
			return fmt.Errorf("%w: sample %d has nil input", ErrInconsistentSample, item.Index)
		}
		if strings.HasPrefix(input.Name, sample.ParamsPrefix) {
			return fmt.Errorf("%w: sample %d input %q uses reserved prefix %q", ErrInconsistentSample, item.Index, input.Name, sample.ParamsPrefix)
		}
	}
	if err := item.Inputs.Validate(); err != nil {
		return fmt.Errorf("%w: sample %d: %v", ErrInconsistentSample, item.Index, err)
	}
	if batchDim == nil {
		return nil
	}
	for _, input := range item.Inputs {
		if input.Rank() <= *batchDim {
			return fmt.Errorf("%w: sample %d input %q rank %d has no batch dim %d", ErrInconsistentSample, item.Index, input.Name, input.Rank(), *batchDim)
		}
	}
	return nil
}

// FromSlice returns a producer over a fixed list of input sets.
func FromSlice(items []tensor.Tensors) iter.Seq[tensor.Tensors] {
	return func(yield func(tensor.Tensors) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}

// FromTensors returns a producer yielding one single-input sample per tensor.
func FromTensors(items ...*tensor.Tensor) iter.Seq[tensor.Tensors] {
	return func(yield func(tensor.Tensors) bool) {
		for _, item := range items {
			if !yield(tensor.Tensors{item}) {
				return
			}
		}
	}
}

// FromDir reads <idx>.npz sample archives from dir in index order; params.<name> entries are dropped.
func FromDir(ctx context.Context, fs afs.Service, dir string) (iter.Seq[tensor.Tensors], error) {
	indexes, err := sample.ListIndexes(ctx, fs, dir)
	if err != nil {
		return nil, err
	}
	items := make([]tensor.Tensors, 0, len(indexes))
	for _, index := range indexes {
		URL := url.Join(dir, sample.FileName(index))
		data, err := fs.DownloadWithURL(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to read %v: %w", URL, err)
		}
		tensors, err := sample.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %v: %w", URL, err)
		}
		items = append(items, sample.Split(index, tensors).Inputs)
	}
	return FromSlice(items), nil
}
