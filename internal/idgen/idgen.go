package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// NewFunc returns a new globally unique identifier. Override in tests.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier as string.
func New() string { return NewFunc() }

// Short returns the first uuid segment, used for temp directory names.
func Short() string {
	id := NewFunc()
	if index := strings.IndexByte(id, '-'); index > 0 {
		return id[:index]
	}
	return id
}
