package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/existflow/taskflow/internal/apperr"
	"github.com/existflow/taskflow/internal/db"
	"github.com/existflow/taskflow/internal/model"
)

// Access answers membership questions. Workspace roles checked here are the
// membership roles, never the user's global role.
type Access struct {
	store *db.Store
}

// ListScope is what a list read may see. An Empty scope lists nothing.
type ListScope struct {
	db.Scope
	Empty bool
}

// Role returns the caller's membership role in a workspace. ok is false for
// non-members.
func (a *Access) Role(ctx context.Context, userID, workspaceID string) (role model.Role, ok bool, err error) {
	role, err = a.store.MemberRole(ctx, workspaceID, userID)
	if errors.Is(err, db.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to check membership: %w", err)
	}
	return role, true, nil
}

// IsMember reports whether a membership row exists
func (a *Access) IsMember(ctx context.Context, userID, workspaceID string) (bool, error) {
	_, ok, err := a.Role(ctx, userID, workspaceID)
	return ok, err
}

// Scope applies the list visibility policy. Without a workspace filter the
// caller sees every workspace they belong to. With a filter they see that
// workspace if they are a member, and nothing otherwise; a non-member gets
// an empty list rather than an error so workspace ids cannot be probed.
func (a *Access) Scope(ctx context.Context, userID, workspaceID string) (ListScope, error) {
	if workspaceID == "" {
		return ListScope{Scope: db.Scope{MemberID: userID}}, nil
	}
	ok, err := a.IsMember(ctx, userID, workspaceID)
	if err != nil {
		return ListScope{}, err
	}
	if !ok {
		return ListScope{Empty: true}, nil
	}
	return ListScope{Scope: db.Scope{WorkspaceID: workspaceID}}, nil
}

// RequireMember fails with 403 unless the caller belongs to the workspace
func (a *Access) RequireMember(ctx context.Context, userID, workspaceID string) (model.Role, error) {
	role, ok, err := a.Role(ctx, userID, workspaceID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.Forbidden("Not a workspace member")
	}
	return role, nil
}

// RequireWriter fails with 403 for non-members and viewers
func (a *Access) RequireWriter(ctx context.Context, userID, workspaceID string) error {
	role, err := a.RequireMember(ctx, userID, workspaceID)
	if err != nil {
		return err
	}
	if role == model.RoleViewer {
		return apperr.Forbidden("Viewers cannot modify this workspace")
	}
	return nil
}

// RequireWorkspaceAdmin fails with 403 unless the caller administers the workspace
func (a *Access) RequireWorkspaceAdmin(ctx context.Context, userID, workspaceID string) error {
	role, err := a.RequireMember(ctx, userID, workspaceID)
	if err != nil {
		return err
	}
	if role != model.RoleAdmin {
		return apperr.Forbidden("Workspace admin only")
	}
	return nil
}
