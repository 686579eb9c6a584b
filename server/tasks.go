package server

import (
	"net/http"

	"github.com/existflow/tasknest/internal/model"
	"github.com/existflow/tasknest/internal/tree"
	"github.com/labstack/echo/v4"
)

type addTaskRequest struct {
	ParentID string `json:"parentId"`
	model.Fields
}

type statusRequest struct {
	Status string `json:"status"`
}

// handleGetTasks returns the tree, sorted when ?primary= is given
func (s *Server) handleGetTasks(c echo.Context) error {
	primary, err := tree.ParseSortKey(c.QueryParam("primary"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	secondary, err := tree.ParseSortKey(c.QueryParam("secondary"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	tasks := s.tasks.Sorted(tree.SortConfig{Primary: primary, Secondary: secondary})
	if tasks == nil {
		tasks = []model.Task{}
	}
	return c.JSON(http.StatusOK, tasks)
}

// handleSaveTasks replaces the whole tree
func (s *Server) handleSaveTasks(c echo.Context) error {
	if c.Request().ContentLength == 0 {
		return badRequest(c, "task list required")
	}
	var tasks []model.Task
	if err := c.Bind(&tasks); err != nil {
		return badRequest(c, "invalid task list")
	}
	if err := s.tasks.Replace(c.Request().Context(), tasks); err != nil {
		return s.fail(c, err, "Failed to save tasks")
	}
	return c.JSON(http.StatusOK, message("Tasks saved successfully"))
}

func (s *Server) handleAddTask(c echo.Context) error {
	var req addTaskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	task, err := s.tasks.Add(req.ParentID, req.Fields)
	if err != nil {
		return s.fail(c, err, "Failed to add task")
	}
	return c.JSON(http.StatusCreated, task)
}

func (s *Server) handleGetTask(c echo.Context) error {
	task, err := s.tasks.Find(c.Param("id"))
	if err != nil {
		return s.fail(c, err, "Failed to retrieve task")
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var patch model.Patch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid request")
	}
	task, err := s.tasks.Update(c.Param("id"), patch)
	if err != nil {
		return s.fail(c, err, "Failed to update task")
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleSetStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		return badRequest(c, err.Error())
	}
	task, err := s.tasks.SetStatus(c.Param("id"), status)
	if err != nil {
		return s.fail(c, err, "Failed to update task")
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleToggleDone(c echo.Context) error {
	task, err := s.tasks.ToggleDone(c.Param("id"))
	if err != nil {
		return s.fail(c, err, "Failed to update task")
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleToggleExpanded(c echo.Context) error {
	task, err := s.tasks.ToggleExpanded(c.Param("id"))
	if err != nil {
		return s.fail(c, err, "Failed to update task")
	}
	return c.JSON(http.StatusOK, task)
}

// handleDeleteTask removes a task with its subtree; their reminders are
// cleaned up best effort
func (s *Server) handleDeleteTask(c echo.Context) error {
	removed, err := s.tasks.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err, "Failed to delete task")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Task deleted successfully",
		"removed": model.Count([]model.Task{removed}),
	})
}
