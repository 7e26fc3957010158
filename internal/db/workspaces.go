package db

import (
	"context"
	"time"

	"github.com/existflow/taskflow/internal/model"
)

// CreateWorkspace inserts the workspace row only; members are added separately
func (s *Store) CreateWorkspace(ctx context.Context, w model.Workspace) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, description, color, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.Name, w.Description, w.Color, w.OwnerID, formatTime(w.CreatedAt),
	)
	return wrapWrite("create workspace", err)
}

// AddMember links a user to a workspace. An existing link yields ErrDuplicate.
func (s *Store) AddMember(ctx context.Context, workspaceID, userID string, role model.Role, joinedAt time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)`,
		workspaceID, userID, string(role), formatTime(joinedAt),
	)
	return wrapWrite("add workspace member", err)
}

// MemberRole returns the membership role of a user, or ErrNotFound
func (s *Store) MemberRole(ctx context.Context, workspaceID, userID string) (model.Role, error) {
	var role string
	err := s.q.QueryRowContext(ctx, `
		SELECT role FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID,
	).Scan(&role)
	if err != nil {
		return "", wrapRead("get member role", err)
	}
	return model.Role(role), nil
}

// GetWorkspace returns a workspace with its members
func (s *Store) GetWorkspace(ctx context.Context, id string) (model.Workspace, error) {
	var (
		w         model.Workspace
		createdAt string
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, description, color, owner_id, created_at FROM workspaces WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.Description, &w.Color, &w.OwnerID, &createdAt)
	if err != nil {
		return model.Workspace{}, wrapRead("get workspace", err)
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Workspace{}, wrapRead("get workspace", err)
	}

	if w.Members, err = s.ListMembers(ctx, id); err != nil {
		return model.Workspace{}, err
	}
	return w, nil
}

// ListWorkspacesForUser returns the workspaces userID belongs to, newest
// first, each with its members.
func (s *Store) ListWorkspacesForUser(ctx context.Context, userID string) ([]model.Workspace, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT w.id, w.name, w.description, w.color, w.owner_id, w.created_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, wrapRead("list workspaces", err)
	}

	workspaces := []model.Workspace{}
	for rows.Next() {
		var (
			w         model.Workspace
			createdAt string
		)
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.Color, &w.OwnerID, &createdAt); err != nil {
			rows.Close()
			return nil, wrapRead("scan workspace", err)
		}
		if w.CreatedAt, err = parseTime(createdAt); err != nil {
			rows.Close()
			return nil, wrapRead("scan workspace", err)
		}
		workspaces = append(workspaces, w)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrapRead("list workspaces", err)
	}
	// Close before issuing member queries; SQLite runs on a single connection
	rows.Close()

	for i := range workspaces {
		members, err := s.ListMembers(ctx, workspaces[i].ID)
		if err != nil {
			return nil, err
		}
		workspaces[i].Members = members
	}
	return workspaces, nil
}

// ListMembers returns the users of a workspace with their membership roles
func (s *Store) ListMembers(ctx context.Context, workspaceID string) ([]model.Member, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT u.id, u.name, u.email, u.avatar, m.role, u.status, m.joined_at
		FROM workspace_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY m.joined_at ASC`, workspaceID)
	if err != nil {
		return nil, wrapRead("list members", err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		var (
			m                      model.Member
			role, status, joinedAt string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Avatar, &role, &status, &joinedAt); err != nil {
			return nil, wrapRead("scan member", err)
		}
		m.Role = model.Role(role)
		m.Status = model.Presence(status)
		if m.JoinedAt, err = parseTime(joinedAt); err != nil {
			return nil, wrapRead("scan member", err)
		}
		members = append(members, m)
	}
	return members, wrapRead("list members", rows.Err())
}
