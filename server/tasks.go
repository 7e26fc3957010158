package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskflow/internal/service"
)

// handleListTasks lists tasks, optionally filtered by ?workspaceId=
func (s *Server) handleListTasks(c echo.Context) error {
	tasks, err := s.services.Tasks.List(c.Request().Context(), callerID(c), c.QueryParam("workspaceId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var req service.CreateTaskInput
	if err := bind(c, &req); err != nil {
		return err
	}

	task, err := s.services.Tasks.Create(c.Request().Context(), callerID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

func (s *Server) handleGetTask(c echo.Context) error {
	task, err := s.services.Tasks.Get(c.Request().Context(), callerID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// handleUpdateTask applies a partial update. Subtasks in the body are ignored.
func (s *Server) handleUpdateTask(c echo.Context) error {
	var req service.UpdateTaskInput
	if err := bind(c, &req); err != nil {
		return err
	}

	task, err := s.services.Tasks.Update(c.Request().Context(), callerID(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// handleDeleteTask always answers 204 for ids the caller cannot see
func (s *Server) handleDeleteTask(c echo.Context) error {
	if err := s.services.Tasks.Delete(c.Request().Context(), callerID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
