package backend

import (
	"errors"
	"fmt"

	"github.com/viant/navigator/model/format"
)

// ErrUnsupportedModel is returned when a backend cannot convert the supplied model kind.
var ErrUnsupportedModel = errors.New("unsupported model")

// ConversionError reports a failed conversion of a single format branch.
type ConversionError struct {
	Format    format.ID
	Cause     error
	transient bool
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert to %v: %v", e.Format, e.Cause)
}

func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// Transient reports whether a retry may succeed.
func (e *ConversionError) Transient() bool {
	return e.transient
}

// NewConversionError creates a conversion error.
func NewConversionError(id format.ID, cause error, transient bool) *ConversionError {
	return &ConversionError{Format: id, Cause: cause, transient: transient}
}
