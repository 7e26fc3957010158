package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/existflow/taskflow/internal/model"
)

// Categories manages per-workspace categories
type Categories struct {
	*core
	access *Access
}

// CreateCategoryInput is the body of POST /categories
type CreateCategoryInput struct {
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

// List returns the visible categories, oldest first
func (s *Categories) List(ctx context.Context, callerID, workspaceID string) ([]model.Category, error) {
	scope, err := s.access.Scope(ctx, callerID, workspaceID)
	if err != nil {
		return nil, err
	}
	if scope.Empty {
		return []model.Category{}, nil
	}
	categories, err := s.store.ListCategories(ctx, scope.Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Create adds a category to a workspace the caller can write to
func (s *Categories) Create(ctx context.Context, callerID string, in CreateCategoryInput) (model.Category, error) {
	fields := fieldErrors{}
	fields.require("workspaceId", in.WorkspaceID)
	fields.require("name", in.Name)
	fields.require("color", in.Color)
	fields.require("icon", in.Icon)
	if err := fields.err(); err != nil {
		return model.Category{}, err
	}

	if err := s.access.RequireWriter(ctx, callerID, in.WorkspaceID); err != nil {
		return model.Category{}, err
	}

	c := model.Category{
		ID:          s.newID(),
		WorkspaceID: in.WorkspaceID,
		Name:        strings.TrimSpace(in.Name),
		Color:       in.Color,
		Icon:        in.Icon,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return model.Category{}, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}
