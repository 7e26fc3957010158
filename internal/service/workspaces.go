package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/existflow/taskflow/internal/apperr"
	"github.com/existflow/taskflow/internal/db"
	"github.com/existflow/taskflow/internal/logger"
	"github.com/existflow/taskflow/internal/model"
)

// Workspaces manages workspaces and their member lists
type Workspaces struct {
	*core
	access *Access
}

// CreateWorkspaceInput is the body of POST /workspaces
type CreateWorkspaceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// AddMemberInput is the body of POST /workspaces/:id/members
type AddMemberInput struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// List returns the caller's workspaces, newest first
func (s *Workspaces) List(ctx context.Context, callerID string) ([]model.Workspace, error) {
	workspaces, err := s.store.ListWorkspacesForUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return workspaces, nil
}

// Create makes a workspace owned and administered by the caller, seeded with
// the default category.
func (s *Workspaces) Create(ctx context.Context, callerID string, in CreateWorkspaceInput) (model.Workspace, error) {
	name := strings.TrimSpace(in.Name)
	fields := fieldErrors{}
	fields.require("name", name)
	if err := fields.err(); err != nil {
		return model.Workspace{}, err
	}
	color := in.Color
	if color == "" {
		color = model.DefaultWorkspaceColor
	}

	var w model.Workspace
	err := s.store.WithTx(ctx, func(tx *db.Store) error {
		created, err := s.seedWorkspace(ctx, tx, callerID, name, in.Description, color)
		if err != nil {
			return err
		}
		w, err = tx.GetWorkspace(ctx, created.ID)
		return err
	})
	if err != nil {
		return model.Workspace{}, err
	}

	logger.Info("Workspace created", logger.F("workspace_id", w.ID), logger.F("owner_id", callerID))
	return w, nil
}

// AddMember adds an existing account to a workspace. Only workspace admins
// may do this; the join is recorded in the feed under the new member's name.
func (s *Workspaces) AddMember(ctx context.Context, callerID, workspaceID string, in AddMemberInput) (model.Workspace, error) {
	fields := fieldErrors{}
	fields.require("email", in.Email)
	role := in.Role
	if role == "" {
		role = model.RoleMember
	}
	if !role.Valid() {
		fields["role"] = "must be admin, member or viewer"
	}
	if err := fields.err(); err != nil {
		return model.Workspace{}, err
	}

	if err := s.access.RequireWorkspaceAdmin(ctx, callerID, workspaceID); err != nil {
		return model.Workspace{}, err
	}

	u, err := s.store.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, db.ErrNotFound) {
		return model.Workspace{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return model.Workspace{}, fmt.Errorf("failed to look up user: %w", err)
	}

	var w model.Workspace
	err = s.store.WithTx(ctx, func(tx *db.Store) error {
		if err := tx.AddMember(ctx, workspaceID, u.ID, role, s.now().UTC()); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return apperr.Conflict("Already a member")
			}
			return fmt.Errorf("failed to add member: %w", err)
		}
		ws, err := tx.GetWorkspace(ctx, workspaceID)
		if err != nil {
			return fmt.Errorf("failed to load workspace: %w", err)
		}
		msg := fmt.Sprintf("%s joined %s", u.Name, ws.Name)
		if _, err := s.appendActivity(ctx, tx, model.ActivityMemberJoined, u.ID, workspaceID, nil, msg); err != nil {
			return err
		}
		w = ws
		return nil
	})
	if err != nil {
		return model.Workspace{}, err
	}

	logger.Info("Member added",
		logger.F("workspace_id", workspaceID),
		logger.F("user_id", u.ID),
		logger.F("role", string(role)))
	return w, nil
}
