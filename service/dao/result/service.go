package result

import (
	"context"
	"fmt"

	"github.com/viant/navigator/model/status"
	"github.com/viant/navigator/service/dao"
	"github.com/viant/navigator/service/dao/criteria"
	"github.com/viant/navigator/service/dao/store"
)

// Service is an append-only journal of command results. It stores and returns
// copies so journaled results can not be mutated by callers.
type Service struct {
	store *store.MemoryStore[string, status.CommandResult]
}

// Compile-time check that Service implements the generic DAO interface.
var _ dao.Service[string, status.CommandResult] = (*Service)(nil)

// Save appends a terminal command result.
func (s *Service) Save(ctx context.Context, result *status.CommandResult) error {
	if result == nil {
		return dao.ErrNilEntity
	}
	switch result.Status {
	case status.Success, status.Failure, status.Skipped:
	default:
		return fmt.Errorf("command %v: non terminal status %q", result.Command, result.Status)
	}
	if err := s.store.Save(ctx, result.Clone()); err != nil {
		return fmt.Errorf("failed to journal %v: %w", result.Command, err)
	}
	return nil
}

// Load returns a copy of the journaled result or dao.ErrNotFound.
func (s *Service) Load(ctx context.Context, command string) (*status.CommandResult, error) {
	if command == "" {
		return nil, dao.ErrInvalidID
	}
	result, err := s.store.Load(ctx, command)
	if err != nil {
		return nil, err
	}
	return result.Clone(), nil
}

// List returns journaled results in append order, filtered by Status, Kind or Format parameters.
// Parameters with other names are ignored.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*status.CommandResult, error) {
	results, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*status.CommandResult, 0, len(results))
	for _, result := range results {
		fields := map[string]string{
			"Status": string(result.Status),
			"Kind":   string(result.Kind),
			"Format": string(result.Format),
		}
		if !criteria.Match(fields, parameters) {
			continue
		}
		out = append(out, result.Clone())
	}
	return out, nil
}

// New creates an empty journal.
func New() *Service {
	return &Service{store: store.NewMemoryStore[string, status.CommandResult](func(r *status.CommandResult) string {
		return r.Command
	})}
}
