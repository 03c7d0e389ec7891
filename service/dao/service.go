package dao

import (
	"context"
)

// Service persists entities of type T keyed by K.
type Service[K comparable, T any] interface {
	// Save stores t; append-only implementations reject an existing key with ErrConflict
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	// List returns entities matching every parameter, in insertion order
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
