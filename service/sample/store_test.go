package sample

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/navigator/model/tensor"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	baseURL := t.TempDir()
	store := NewStore(afs.New(), baseURL)
	for i := 0; i < 12; i++ {
		sample := &tensor.Sample{
			Index:  i,
			Inputs: tensor.Tensors{{Name: "x", Shape: []int{2}, DType: tensor.Float64, Data: []float64{float64(i), 1}}},
			Params: tensor.Tensors{{Name: "bias", Shape: []int{1}, DType: tensor.Float64, Data: []float64{0.5}}},
		}
		require.NoError(t, store.WriteInput(ctx, DefaultGroup, sample))
		require.NoError(t, store.WriteOutput(ctx, DefaultGroup, i, tensor.Tensors{{Name: "y", Shape: []int{1}, DType: tensor.Float64, Data: []float64{float64(i) + 1.5}}}))
	}
	indexes, err := store.Indexes(ctx, DefaultGroup)
	require.NoError(t, err)
	assert.Len(t, indexes, 12)
	assert.Equal(t, 11, indexes[11], "numeric not lexical order")

	entries, err := os.ReadDir(filepath.Join(baseURL, OutputFolder, DefaultGroup))
	require.NoError(t, err)
	assert.Len(t, entries, 12)
	for _, entry := range entries {
		assert.Equal(t, Suffix, filepath.Ext(entry.Name()))
	}

	sample, err := store.ReadInput(ctx, DefaultGroup, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, sample.Inputs.Names())
	assert.Equal(t, []string{"bias"}, sample.Params.Names())
	assert.Equal(t, []float64{3, 1}, sample.Inputs[0].Data)

	outputs, err := store.ReadOutput(ctx, DefaultGroup, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{4.5}, outputs.Lookup("y").Data)

	_, err = store.ReadOutput(ctx, DefaultGroup, 40)
	assert.Error(t, err)
}

func TestStore_InvalidGroup(t *testing.T) {
	store := NewStore(afs.New(), t.TempDir())
	for _, group := range []string{"", "a/b", "."} {
		err := store.WriteOutput(context.Background(), group, 0, tensor.Tensors{{Name: "y", Shape: []int{1}, DType: tensor.Float64, Data: []float64{1}}})
		assert.Error(t, err, group)
	}
}
