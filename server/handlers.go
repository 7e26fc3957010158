package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskflow/internal/service"
)

func (s *Server) handleListWorkspaces(c echo.Context) error {
	workspaces, err := s.services.Workspaces.List(c.Request().Context(), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workspaces)
}

func (s *Server) handleCreateWorkspace(c echo.Context) error {
	var req service.CreateWorkspaceInput
	if err := bind(c, &req); err != nil {
		return err
	}

	w, err := s.services.Workspaces.Create(c.Request().Context(), callerID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (s *Server) handleAddMember(c echo.Context) error {
	var req service.AddMemberInput
	if err := bind(c, &req); err != nil {
		return err
	}

	w, err := s.services.Workspaces.AddMember(c.Request().Context(), callerID(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (s *Server) handleListCategories(c echo.Context) error {
	categories, err := s.services.Categories.List(c.Request().Context(), callerID(c), c.QueryParam("workspaceId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(c echo.Context) error {
	var req service.CreateCategoryInput
	if err := bind(c, &req); err != nil {
		return err
	}

	category, err := s.services.Categories.Create(c.Request().Context(), callerID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, category)
}

func (s *Server) handleListActivities(c echo.Context) error {
	activities, err := s.services.Activities.List(c.Request().Context(), callerID(c), c.QueryParam("workspaceId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activities)
}

// handleListUsers lists every account for global admins
func (s *Server) handleListUsers(c echo.Context) error {
	users, err := s.services.Admin.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}
