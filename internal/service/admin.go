package service

import (
	"context"
	"fmt"

	"github.com/existflow/taskflow/internal/model"
)

// Admin serves global-admin operations. Callers are gated on the global role
// before reaching it.
type Admin struct {
	*core
}

// ListUsers returns every account, newest first
func (s *Admin) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
