package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/01moynul/dayplanner-golang/internal/models"
	"github.com/01moynul/dayplanner-golang/internal/store"
)

type TaskInput struct {
	Title    string  `json:"title" binding:"required,max=255"`
	Notes    *string `json:"notes" binding:"omitempty,max=5000"`
	Category *string `json:"category" binding:"omitempty,max=100"`
	DueDate  *string `json:"dueDate" binding:"omitempty,datetime=2006-01-02"`
}

// ListTasks returns the caller's tasks, optionally limited to ?from=&to= (inclusive dates).
// GET /v1/tasks
func (h *Handlers) ListTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var f store.TaskFilter
	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": key + " must be YYYY-MM-DD"})
			return
		}
		*dst = &d
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not be before from"})
		return
	}
	f.Open = c.Query("open") == "true"

	tasks, err := h.Tasks.List(c.Request.Context(), userID, f)
	if err != nil {
		h.Logger.Error("list tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CreateTask adds a task. The category label is kept as typed and slugged for filtering.
// POST /v1/tasks
func (h *Handlers) CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := &models.Task{
		UserID: userID,
		Title:  strings.TrimSpace(input.Title),
		Notes:  input.Notes,
	}
	if input.Category != nil {
		if label := strings.TrimSpace(*input.Category); label != "" {
			s := slug.Make(label)
			task.Category = &label
			task.CategorySlug = &s
		}
	}
	if input.DueDate != nil {
		d, _ := time.Parse(time.DateOnly, *input.DueDate) // checked by the binding tag
		task.DueDate = &d
	}

	if err := h.Tasks.Create(c.Request.Context(), task); err != nil {
		h.Logger.Error("create task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// CompleteTask marks a task done.
// PATCH /v1/tasks/:id/complete
func (h *Handlers) CompleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Tasks.Complete(c.Request.Context(), userID, id); err != nil {
		h.taskWriteFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task completed"})
}

// DeleteTask removes a task.
// DELETE /v1/tasks/:id
func (h *Handlers) DeleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Tasks.Delete(c.Request.Context(), userID, id); err != nil {
		h.taskWriteFailed(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) taskWriteFailed(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	h.Logger.Error("task write", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
}
