package workspace

import (
	"errors"
	"fmt"
)

// ErrManifestWritten is returned when the manifest is written more than once per export.
var ErrManifestWritten = errors.New("manifest already written")

// WorkspaceExistsError reports a non-empty package directory without override.
type WorkspaceExistsError struct {
	Path string
}

func (e *WorkspaceExistsError) Error() string {
	return fmt.Sprintf("workspace %v already exists, use override to replace it", e.Path)
}
