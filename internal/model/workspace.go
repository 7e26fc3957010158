package model

import "time"

// Defaults seeded into every new workspace
const (
	DefaultWorkspaceName  = "My Workspace"
	DefaultWorkspaceColor = "#6366f1"
	DefaultCategoryName   = "General"
	DefaultCategoryColor  = "#6366f1"
	DefaultCategoryIcon   = "✅"
)

// Workspace is the tenant boundary owning categories, tasks and activities
type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	Members     []Member  `json:"members"`
}

// Member is a user as seen through a workspace membership.
// Role is the membership role, not the user's global role.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Avatar   string    `json:"avatar"`
	Role     Role      `json:"role"`
	Status   Presence  `json:"status"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Category is a named, colored tag scoped to a workspace
type Category struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Icon        string    `json:"icon"`
	CreatedAt   time.Time `json:"-"`
}
