package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stellar-tasks/internal/access"
	"github.com/yukikurage/stellar-tasks/internal/dto"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"github.com/yukikurage/stellar-tasks/internal/middleware"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"github.com/yukikurage/stellar-tasks/internal/services"
	"github.com/yukikurage/stellar-tasks/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
	aiService   *services.AIService
}

func NewTaskHandler(taskService *services.TaskService, aiService *services.AIService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		aiService:   aiService,
	}
}

// ListTasks returns the tasks visible to the caller with per-status counts.
// Members only ever see their own assignments.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	input := services.ListTasksInput{
		Search: strings.TrimSpace(c.Query("search")),
	}
	if status := c.Query("status"); status != "" && status != "All" {
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := models.TaskPriority(priority)
		input.Priority = &p
	}
	if assignedTo := c.Query("assignedTo"); assignedTo != "" {
		userID, err := strconv.ParseUint(assignedTo, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assignedTo")
			return
		}
		input.AssignedTo = &userID
	}

	params := utils.GetPaginationParams(c)
	if params != nil {
		input.Page = params.Page
		input.PageSize = params.Limit
	}

	page, err := h.taskService.ListTasks(c.Request.Context(), actor, input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(page, params))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), actor, taskID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title         string                 `json:"title"`
		Description   string                 `json:"description"`
		Priority      models.TaskPriority    `json:"priority"`
		DueDate       *time.Time             `json:"dueDate"`
		AssignedTo    []uint64               `json:"assignedTo"`
		TodoChecklist []models.ChecklistItem `json:"todoChecklist"`
		Attachments   []string               `json:"attachments"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, notice, err := h.taskService.CreateTask(c.Request.Context(), actor, services.CreateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		DueDate:       req.DueDate,
		AssignedTo:    req.AssignedTo,
		TodoChecklist: req.TodoChecklist,
		Attachments:   req.Attachments,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	// The durable record already exists; the session copy only lets this
	// client show the notice before its next poll.
	if notice != nil {
		if err := services.NewSessionCache(sessions.Default(c)).Add(*notice); err != nil {
			slog.Warn("failed to cache creation notice",
				slog.Uint64("task_id", task.ID), slog.Any("err", err))
		}
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title         *string                 `json:"title"`
		Description   *string                 `json:"description"`
		Priority      *models.TaskPriority    `json:"priority"`
		Status        *models.TaskStatus      `json:"status"`
		DueDate       *time.Time              `json:"dueDate"`
		AssignedTo    *[]uint64               `json:"assignedTo"`
		TodoChecklist *[]models.ChecklistItem `json:"todoChecklist"`
		Attachments   *[]string               `json:"attachments"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), actor, taskID, services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		Status:        req.Status,
		DueDate:       req.DueDate,
		AssignedTo:    req.AssignedTo,
		TodoChecklist: req.TodoChecklist,
		Attachments:   req.Attachments,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTaskStatus writes a status manually
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	var req struct {
		Status models.TaskStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Status is required")
		return
	}

	task, err := h.taskService.SetStatus(c.Request.Context(), actor, taskID, req.Status)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTaskChecklist replaces the checklist
func (h *TaskHandler) UpdateTaskChecklist(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	var req struct {
		TodoChecklist []models.ChecklistItem `json:"todoChecklist"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.ReplaceChecklist(c.Request.Context(), actor, taskID, req.TodoChecklist)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateChecklistItem sets one item's completion flag
func (h *TaskHandler) UpdateChecklistItem(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid checklist index")
		return
	}

	var req struct {
		Completed *bool `json:"completed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Completed is required")
		return
	}

	task, err := h.taskService.SetItemCompleted(c.Request.Context(), actor, taskID, index, *req.Completed)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask soft deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, taskID, ok := requireActorAndTask(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), actor, taskID); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// SuggestChecklist asks the AI service for checklist items
func (h *TaskHandler) SuggestChecklist(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Title is required")
		return
	}

	items, err := h.aiService.SuggestChecklist(c.Request.Context(), req.Title, req.Description)
	switch {
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI service is not configured")
		return
	case errors.Is(err, services.ErrAINoItemsGenerated):
		items = []string{}
	case err != nil:
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func requireActor(c *gin.Context) (access.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return access.Actor{}, false
	}
	return actor, true
}

func requireActorAndTask(c *gin.Context) (access.Actor, uint64, bool) {
	actor, ok := requireActor(c)
	if !ok {
		return access.Actor{}, 0, false
	}
	taskID, ok := middleware.GetTaskID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return access.Actor{}, 0, false
	}
	return actor, taskID, true
}
