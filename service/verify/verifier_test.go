package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/model/tensor"
	"github.com/viant/navigator/service/runner"
	"github.com/viant/navigator/service/sample"
)

func shifted(delta float64) runner.Runner {
	return runner.Func(func(ctx context.Context, inputs, params tensor.Tensors) (tensor.Tensors, error) {
		out := inputs[0].Clone()
		out.Name = "output__0"
		for i := range out.Data {
			out.Data[i] = out.Data[i]*2 + delta
		}
		return tensor.Tensors{out}, nil
	})
}

func TestVerifier_Verify(t *testing.T) {
	ctx := context.Background()
	failing := runner.Func(func(ctx context.Context, inputs, params tensor.Tensors) (tensor.Tensors, error) {
		return nil, errors.New("runtime crashed")
	})
	testCases := []struct {
		description string
		samples     int
		model       runner.Runner
		tolerance   *status.Tolerance
		expect      status.VerdictKind
		expectErr   interface{}
	}{
		{description: "match", samples: 3, model: shifted(0), expect: status.VerdictMatch},
		{description: "mismatch", samples: 3, model: shifted(0.5), expect: status.VerdictMismatch, expectErr: &MismatchError{}},
		{description: "tolerance override", samples: 3, model: shifted(0.5), tolerance: &status.Tolerance{Atol: 1}, expect: status.VerdictMatch},
		{description: "runtime failure", samples: 3, model: failing, expect: status.VerdictError, expectErr: &VerificationError{}},
		{description: "no samples", samples: 0, model: shifted(0), expect: status.VerdictError, expectErr: &VerificationError{}},
	}
	for _, testCase := range testCases {
		store := sample.NewStore(afs.New(), t.TempDir())
		for i := 0; i < testCase.samples; i++ {
			input := &tensor.Tensor{Name: "x", Shape: []int{1, 2}, DType: tensor.Float64, Data: []float64{float64(i), 1}}
			require.NoError(t, store.WriteInput(ctx, sample.DefaultGroup, &tensor.Sample{Index: i, Inputs: tensor.Tensors{input}}))
			reference, err := shifted(0).Infer(ctx, tensor.Tensors{input}, nil)
			require.NoError(t, err)
			require.NoError(t, store.WriteOutput(ctx, sample.DefaultGroup, i, reference))
		}
		verifier := New(store, "")
		verdict, err := verifier.Verify(ctx, &Request{Format: format.ONNX, Precision: format.PrecisionFP32, Runner: testCase.model, Tolerance: testCase.tolerance})
		require.NotNil(t, verdict, testCase.description)
		assert.Equal(t, testCase.expect, verdict.Kind, testCase.description)
		switch expected := testCase.expectErr.(type) {
		case nil:
			assert.NoError(t, err, testCase.description)
			assert.Equal(t, testCase.samples, verdict.Samples, testCase.description)
		case *MismatchError:
			assert.True(t, errors.As(err, &expected), testCase.description)
			assert.InDelta(t, 0.5, expected.Verdict.MaxAbsDiff, 1e-9, testCase.description)
		case *VerificationError:
			assert.True(t, errors.As(err, &expected), testCase.description)
			assert.Equal(t, format.ONNX, expected.Format, testCase.description)
		}
	}
}
