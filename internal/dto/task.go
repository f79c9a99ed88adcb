package dto

import (
	"time"

	"github.com/yukikurage/stellar-tasks/internal/lifecycle"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"github.com/yukikurage/stellar-tasks/internal/services"
	"github.com/yukikurage/stellar-tasks/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64          `json:"id"`
	Username string          `json:"username"`
	Name     string          `json:"name"`
	Role     models.UserRole `json:"role"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID                 uint64                 `json:"id"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	Priority           models.TaskPriority    `json:"priority"`
	Status             models.TaskStatus      `json:"status"`
	DueDate            time.Time              `json:"dueDate"`
	AssignedTo         []UserDTO              `json:"assignedTo"`
	CreatedBy          *UserDTO               `json:"createdBy,omitempty"`
	TodoChecklist      []models.ChecklistItem `json:"todoChecklist"`
	Attachments        []string               `json:"attachments"`
	Progress           int                    `json:"progress"`
	CompletedTodoCount int                    `json:"completedTodoCount"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

// TaskListResponse is the body of GET /api/tasks
type TaskListResponse struct {
	Tasks         []TaskDTO                 `json:"tasks"`
	StatusSummary services.StatusSummary    `json:"statusSummary"`
	Pagination    *utils.PaginationResponse `json:"pagination,omitempty"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Role:     user.Role,
	}
}

// ToTaskDTO converts a Task model to TaskDTO with its derived progress
func ToTaskDTO(task models.Task) TaskDTO {
	checklist := lifecycle.Checklist(task.TodoChecklist)
	dto := TaskDTO{
		ID:                 task.ID,
		Title:              task.Title,
		Description:        task.Description,
		Priority:           task.Priority,
		Status:             task.Status,
		DueDate:            task.DueDate,
		AssignedTo:         make([]UserDTO, 0, len(task.Assignments)),
		TodoChecklist:      task.TodoChecklist,
		Attachments:        task.Attachments,
		Progress:           checklist.ProgressPercent(),
		CompletedTodoCount: checklist.CompletedCount(),
		CreatedAt:          task.CreatedAt,
		UpdatedAt:          task.UpdatedAt,
	}
	if dto.TodoChecklist == nil {
		dto.TodoChecklist = []models.ChecklistItem{}
	}
	if dto.Attachments == nil {
		dto.Attachments = []string{}
	}

	// Include creator if preloaded
	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.CreatedBy = &creator
	}

	for _, assignment := range task.Assignments {
		user := assignment.User
		if user.ID == 0 {
			user.ID = assignment.UserID
		}
		dto.AssignedTo = append(dto.AssignedTo, ToUserDTO(user))
	}

	return dto
}

// ToTaskListResponse converts a task page to TaskListResponse
func ToTaskListResponse(page *services.TaskPage, pagination *utils.PaginationParams) TaskListResponse {
	items := make([]TaskDTO, len(page.Tasks))
	for i, task := range page.Tasks {
		items[i] = ToTaskDTO(task)
	}

	response := TaskListResponse{
		Tasks:         items,
		StatusSummary: page.StatusSummary,
	}
	if pagination != nil {
		response.Pagination = &utils.PaginationResponse{
			Page:  pagination.Page,
			Limit: pagination.Limit,
			Total: page.Total,
		}
	}
	return response
}
