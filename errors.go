package navigator

import (
	"errors"

	"github.com/viant/navigator/service/backend"
	"github.com/viant/navigator/service/capture"
	"github.com/viant/navigator/service/dataloader"
	"github.com/viant/navigator/service/pipeline"
	"github.com/viant/navigator/service/verify"
	"github.com/viant/navigator/service/workspace"
)

var (
	// ErrEmptyDataloader is returned when the dataloader yields no samples.
	ErrEmptyDataloader = dataloader.ErrEmptyDataloader
	// ErrInvalidRequest is returned for malformed export requests.
	ErrInvalidRequest = errors.New("invalid export request")
	// ErrFrameworkUnavailable is returned when the source framework is not installed.
	ErrFrameworkUnavailable = errors.New("framework not available")
)

type (
	// ModelInvocationError reports a source model failure during sample capture.
	ModelInvocationError = capture.ModelInvocationError
	// WorkspaceExistsError reports a non-empty package directory without override.
	WorkspaceExistsError = workspace.WorkspaceExistsError
	// ConversionError reports a failed format conversion.
	ConversionError = backend.ConversionError
	// VerificationError reports an artifact that could not be verified.
	VerificationError = verify.VerificationError
	// MismatchError reports artifact outputs outside tolerance.
	MismatchError = verify.MismatchError
	// TimeoutError reports a command exceeding its timeout.
	TimeoutError = pipeline.TimeoutError
)
