package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"todo-service/internal/entity"
	"todo-service/internal/middleware"
	"todo-service/internal/service"
)

type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a new instance of TaskHandler
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// ListTasks --> GET /tasks
func (h *TaskHandler) ListTasks(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	tasks, err := h.tasks.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

// GetTask --> GET /tasks/:id
func (h *TaskHandler) GetTask(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}

	task, err := h.tasks.Get(c.Request().Context(), id, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// CreateTask --> POST /tasks
func (h *TaskHandler) CreateTask(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var in entity.TaskInput
	if err := c.Bind(&in); err != nil {
		return entity.NewValidationError("", "Invalid request payload")
	}

	task, err := h.tasks.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

// UpdateTask --> PUT /tasks/:id
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}

	var in entity.TaskInput
	if err := c.Bind(&in); err != nil {
		return entity.NewValidationError("", "Invalid request payload")
	}

	task, err := h.tasks.Update(c.Request().Context(), id, userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// DeleteTask --> DELETE /tasks/:id
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}

	if err := h.tasks.Delete(c.Request().Context(), id, userID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func currentUserID(c echo.Context) (int, error) {
	claims, ok := middleware.Identity(c)
	if !ok {
		return 0, entity.ErrUnauthenticated
	}
	return claims.UserID, nil
}

func taskID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, entity.NewValidationError("id", "Invalid task ID")
	}
	return id, nil
}
