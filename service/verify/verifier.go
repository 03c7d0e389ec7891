package verify

import (
	"context"
	"fmt"

	"github.com/viant/navigator/model/format"
	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/service/runner"
	"github.com/viant/navigator/service/sample"
)

// VerificationError reports that an artifact could not be verified, e.g. its runtime failed.
type VerificationError struct {
	Format format.ID
	Cause  error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("failed to verify %v: %v", e.Format, e.Cause)
}

func (e *VerificationError) Unwrap() error {
	return e.Cause
}

// MismatchError reports outputs outside tolerance; the artifact is kept for inspection.
type MismatchError struct {
	Format  format.ID
	Verdict *status.Verdict
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v outputs mismatch: max abs diff %g, max rel diff %g (atol %g, rtol %g)",
		e.Format, e.Verdict.MaxAbsDiff, e.Verdict.MaxRelDiff, e.Verdict.Tolerance.Atol, e.Verdict.Tolerance.Rtol)
}

// Request describes one artifact verification.
type Request struct {
	Format    format.ID
	Precision format.Precision
	Runner    runner.Runner
	// Tolerance overrides the precision derived default when set.
	Tolerance *status.Tolerance
}

// Verifier re-runs artifacts over captured samples and compares their outputs with the reference.
type Verifier struct {
	store *sample.Store
	group string
}

// Verify runs the artifact over every captured input sample; it returns the aggregated verdict
// together with VerificationError or MismatchError when the verdict is not a match.
func (v *Verifier) Verify(ctx context.Context, request *Request) (*status.Verdict, error) {
	indexes, err := v.store.Indexes(ctx, v.group)
	if err != nil {
		return v.failed(request, err)
	}
	if len(indexes) == 0 {
		return v.failed(request, fmt.Errorf("no captured samples in group %v", v.group))
	}
	var aggregate *status.Verdict
	for _, index := range indexes {
		if err = ctx.Err(); err != nil {
			return v.failed(request, err)
		}
		input, err := v.store.ReadInput(ctx, v.group, index)
		if err != nil {
			return v.failed(request, err)
		}
		reference, err := v.store.ReadOutput(ctx, v.group, index)
		if err != nil {
			return v.failed(request, err)
		}
		produced, err := request.Runner.Infer(ctx, input.Inputs, input.Params)
		if err != nil {
			return v.failed(request, fmt.Errorf("sample %d: %w", index, err))
		}
		tolerance := DefaultTolerance(request.Precision, reference)
		if request.Tolerance != nil {
			tolerance = *request.Tolerance
		}
		verdict := Compare(reference, produced, tolerance)
		if verdict.Kind == status.VerdictError {
			verdict.Cause = fmt.Sprintf("sample %d: %v", index, verdict.Cause)
		}
		aggregate = Merge(aggregate, verdict)
		if aggregate.Kind == status.VerdictError {
			return aggregate, &VerificationError{Format: request.Format, Cause: fmt.Errorf("%s", aggregate.Cause)}
		}
	}
	if aggregate.Kind == status.VerdictMismatch {
		return aggregate, &MismatchError{Format: request.Format, Verdict: aggregate}
	}
	return aggregate, nil
}

func (v *Verifier) failed(request *Request, err error) (*status.Verdict, error) {
	verdict := &status.Verdict{Kind: status.VerdictError, Cause: err.Error()}
	if request.Tolerance != nil {
		verdict.Tolerance = *request.Tolerance
	}
	return verdict, &VerificationError{Format: request.Format, Cause: err}
}

// New creates a verifier reading captured samples of group from store.
func New(store *sample.Store, group string) *Verifier {
	if group == "" {
		group = sample.DefaultGroup
	}
	return &Verifier{store: store, group: group}
}
