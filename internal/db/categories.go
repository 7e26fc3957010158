package db

import (
	"context"

	"github.com/existflow/taskflow/internal/model"
)

// CreateCategory inserts a category
func (s *Store) CreateCategory(ctx context.Context, c model.Category) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO categories (id, workspace_id, name, color, icon, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.WorkspaceID, c.Name, c.Color, c.Icon, formatTime(c.CreatedAt),
	)
	return wrapWrite("create category", err)
}

// GetCategory returns a category by id
func (s *Store) GetCategory(ctx context.Context, id string) (model.Category, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, color, icon, created_at FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	return c, wrapRead("get category", err)
}

// ListCategories returns the categories in scope, oldest first
func (s *Store) ListCategories(ctx context.Context, scope Scope) ([]model.Category, error) {
	cond, arg := scope.where("workspace_id")
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, workspace_id, name, color, icon, created_at FROM categories
		WHERE `+cond+`
		ORDER BY created_at ASC`, arg)
	if err != nil {
		return nil, wrapRead("list categories", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, wrapRead("scan category", err)
		}
		categories = append(categories, c)
	}
	return categories, wrapRead("list categories", rows.Err())
}

func scanCategory(row rowScanner) (model.Category, error) {
	var (
		c         model.Category
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.Color, &c.Icon, &createdAt); err != nil {
		return model.Category{}, err
	}
	var err error
	c.CreatedAt, err = parseTime(createdAt)
	return c, err
}
