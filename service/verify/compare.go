package verify

import (
	"fmt"
	"math"

	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/model/tensor"
)

var tolerances = map[format.Precision]status.Tolerance{
	format.PrecisionFP16: {Atol: 1e-2, Rtol: 1e-2},
	format.PrecisionFP32: {Atol: 1e-5, Rtol: 1e-5},
	format.PrecisionFP64: {Atol: 1e-7, Rtol: 1e-7},
}

// DefaultTolerance returns the looser of the artifact precision tolerance and the
// reference output dtype tolerance.
func DefaultTolerance(precision format.Precision, reference tensor.Tensors) status.Tolerance {
	ret := tolerances[format.PrecisionFP64]
	for _, output := range reference {
		if output.DType == tensor.Float32 {
			ret = loosest(ret, tolerances[format.PrecisionFP32])
		}
	}
	if candidate, ok := tolerances[precision]; ok {
		ret = loosest(ret, candidate)
	}
	return ret
}

func loosest(a, b status.Tolerance) status.Tolerance {
	return status.Tolerance{Atol: math.Max(a.Atol, b.Atol), Rtol: math.Max(a.Rtol, b.Rtol)}
}

// Compare compares produced outputs with reference outputs using allclose semantics:
// |a-b| <= atol + rtol*|b|. Outputs are matched by name, or by position when names differ
// but counts agree. Missing outputs or shape differences produce an error verdict.
func Compare(reference, produced tensor.Tensors, tolerance status.Tolerance) *status.Verdict {
	ret := &status.Verdict{Kind: status.VerdictMatch, Tolerance: tolerance, Samples: 1, Outputs: map[string]*status.OutputDiff{}}
	pairs, err := pair(reference, produced)
	if err != nil {
		ret.Kind, ret.Cause = status.VerdictError, err.Error()
		return ret
	}
	for _, p := range pairs {
		expected, actual := p[0], p[1]
		if !expected.SameShape(actual) {
			ret.Kind = status.VerdictError
			ret.Cause = fmt.Sprintf("output %q: expected shape %v, got %v", expected.Name, expected.Shape, actual.Shape)
			return ret
		}
		diff := &status.OutputDiff{}
		for i, b := range expected.Data {
			a := actual.Data[i]
			absDiff, relDiff := difference(a, b)
			diff.MaxAbsDiff = math.Max(diff.MaxAbsDiff, absDiff)
			diff.MaxRelDiff = math.Max(diff.MaxRelDiff, relDiff)
			if absDiff != 0 && !(absDiff <= tolerance.Atol+tolerance.Rtol*math.Abs(b)) {
				ret.Kind = status.VerdictMismatch
			}
		}
		ret.Outputs[expected.Name] = diff
		ret.MaxAbsDiff = math.Max(ret.MaxAbsDiff, diff.MaxAbsDiff)
		ret.MaxRelDiff = math.Max(ret.MaxRelDiff, diff.MaxRelDiff)
	}
	return ret
}

func difference(a, b float64) (float64, float64) {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0, 0
	case aNaN || bNaN:
		return math.Inf(1), math.Inf(1)
	case a == b:
		return 0, 0
	}
	absDiff := math.Abs(a - b)
	if b == 0 {
		return absDiff, math.Inf(1)
	}
	return absDiff, absDiff / math.Abs(b)
}

func pair(reference, produced tensor.Tensors) ([][2]*tensor.Tensor, error) {
	if len(produced) == 0 {
		return nil, fmt.Errorf("artifact produced no outputs")
	}
	ret := make([][2]*tensor.Tensor, 0, len(reference))
	byName := true
	for _, expected := range reference {
		if produced.Lookup(expected.Name) == nil {
			byName = false
			break
		}
	}
	if !byName && len(reference) != len(produced) {
		return nil, fmt.Errorf("expected outputs %v, got %v", reference.Names(), produced.Names())
	}
	for i, expected := range reference {
		actual := produced.Lookup(expected.Name)
		if !byName {
			actual = produced[i]
		}
		ret = append(ret, [2]*tensor.Tensor{expected, actual})
	}
	return ret, nil
}

// Merge folds a per-sample verdict into an aggregate verdict.
func Merge(aggregate, verdict *status.Verdict) *status.Verdict {
	if aggregate == nil {
		return verdict
	}
	aggregate.Samples += verdict.Samples
	switch {
	case aggregate.Kind == status.VerdictError:
	case verdict.Kind == status.VerdictError:
		aggregate.Kind, aggregate.Cause = verdict.Kind, verdict.Cause
	case verdict.Kind == status.VerdictMismatch:
		aggregate.Kind = status.VerdictMismatch
	}
	aggregate.MaxAbsDiff = math.Max(aggregate.MaxAbsDiff, verdict.MaxAbsDiff)
	aggregate.MaxRelDiff = math.Max(aggregate.MaxRelDiff, verdict.MaxRelDiff)
	for name, diff := range verdict.Outputs {
		current, ok := aggregate.Outputs[name]
		if !ok {
			if aggregate.Outputs == nil {
				aggregate.Outputs = map[string]*status.OutputDiff{}
			}
			clone := *diff
			aggregate.Outputs[name] = &clone
			continue
		}
		current.MaxAbsDiff = math.Max(current.MaxAbsDiff, diff.MaxAbsDiff)
		current.MaxRelDiff = math.Max(current.MaxRelDiff, diff.MaxRelDiff)
	}
	return aggregate
}
