package service

import (
	"context"
	"fmt"

	"github.com/existflow/taskflow/internal/model"
)

// Activities reads the feed. Entries are written by core.appendActivity
// inside the transaction of the change they describe.
type Activities struct {
	*core
	access *Access
}

// List returns up to model.ActivityLimit visible entries, newest first
func (s *Activities) List(ctx context.Context, callerID, workspaceID string) ([]model.Activity, error) {
	scope, err := s.access.Scope(ctx, callerID, workspaceID)
	if err != nil {
		return nil, err
	}
	if scope.Empty {
		return []model.Activity{}, nil
	}
	activities, err := s.store.ListActivities(ctx, scope.Scope, model.ActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}
