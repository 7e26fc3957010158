// Package service holds the business rules of TaskFlow: identity, workspace
// membership, categories, the task lifecycle and the activity feed.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/existflow/taskflow/internal/apperr"
	"github.com/existflow/taskflow/internal/auth"
	"github.com/existflow/taskflow/internal/db"
	"github.com/existflow/taskflow/internal/mail"
	"github.com/existflow/taskflow/internal/model"
)

// VerificationConfig controls the email verification flow
type VerificationConfig struct {
	Enabled    bool
	AppBaseURL string
}

// Deps are the collaborators shared by every service
type Deps struct {
	Store        *db.Store
	Hasher       auth.PasswordHasher
	Tokens       *auth.TokenIssuer
	Mailer       mail.Dispatcher
	Verification VerificationConfig

	// Now and NewID default to time.Now and uuid.NewString
	Now   func() time.Time
	NewID func() string
}

// Services bundles the application services
type Services struct {
	Identity   *Identity
	Access     *Access
	Workspaces *Workspaces
	Categories *Categories
	Tasks      *Tasks
	Activities *Activities
	Admin      *Admin
}

// New wires the services over d
func New(d Deps) *Services {
	c := &core{store: d.Store, now: d.Now, newID: d.NewID}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if d.Mailer == nil {
		d.Mailer = mail.LogSender{}
	}

	access := &Access{store: d.Store}
	activities := &Activities{core: c, access: access}
	return &Services{
		Identity: &Identity{
			core:   c,
			hasher: d.Hasher,
			tokens: d.Tokens,
			mailer: d.Mailer,
			verify: d.Verification,
		},
		Access:     access,
		Workspaces: &Workspaces{core: c, access: access},
		Categories: &Categories{core: c, access: access},
		Tasks:      &Tasks{core: c, access: access},
		Activities: activities,
		Admin:      &Admin{core: c},
	}
}

// core carries the store, clock and id source shared by the services
type core struct {
	store *db.Store
	now   func() time.Time
	newID func() string
}

// seedWorkspace creates a workspace owned by ownerID with an admin
// membership and the default category. It must run on a transaction store.
func (c *core) seedWorkspace(ctx context.Context, tx *db.Store, ownerID, name, description, color string) (model.Workspace, error) {
	now := c.now().UTC()
	w := model.Workspace{
		ID:          c.newID(),
		Name:        name,
		Description: description,
		Color:       color,
		OwnerID:     ownerID,
		CreatedAt:   now,
	}
	if err := tx.CreateWorkspace(ctx, w); err != nil {
		return model.Workspace{}, fmt.Errorf("failed to create workspace: %w", err)
	}
	if err := tx.AddMember(ctx, w.ID, ownerID, model.RoleAdmin, now); err != nil {
		return model.Workspace{}, fmt.Errorf("failed to add workspace owner: %w", err)
	}
	category := model.Category{
		ID:          c.newID(),
		WorkspaceID: w.ID,
		Name:        model.DefaultCategoryName,
		Color:       model.DefaultCategoryColor,
		Icon:        model.DefaultCategoryIcon,
		CreatedAt:   now,
	}
	if err := tx.CreateCategory(ctx, category); err != nil {
		return model.Workspace{}, fmt.Errorf("failed to create default category: %w", err)
	}
	return w, nil
}

// defaultActor resolves who an activity is attributed to: the assignee when
// there is one, else the earliest account.
func (c *core) defaultActor(ctx context.Context, store *db.Store, assigneeID *string) (string, error) {
	if assigneeID != nil && *assigneeID != "" {
		return *assigneeID, nil
	}
	u, err := store.EarliestUser(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return "", apperr.Internal(err, "No users exist. Seed required.")
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve default actor: %w", err)
	}
	return u.ID, nil
}

// appendActivity writes a feed entry on store
func (c *core) appendActivity(ctx context.Context, store *db.Store, kind model.ActivityType, userID, workspaceID string, taskID *string, message string) (model.Activity, error) {
	a := model.Activity{
		ID:          c.newID(),
		Type:        kind,
		UserID:      userID,
		TaskID:      taskID,
		WorkspaceID: workspaceID,
		Message:     message,
		CreatedAt:   c.now().UTC(),
	}
	if err := store.CreateActivity(ctx, a); err != nil {
		return model.Activity{}, fmt.Errorf("failed to append activity: %w", err)
	}
	return a, nil
}

// fieldErrors collects per-field validation failures
type fieldErrors map[string]string

func (f fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "required"
	}
}

// err returns a Validation error carrying the failures, or nil
func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperr.Validation("Validation failed").WithDetails(map[string]string(f))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
