package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/yukikurage/stellar-tasks/internal/access"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"github.com/yukikurage/stellar-tasks/internal/lifecycle"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"github.com/yukikurage/stellar-tasks/internal/repository"
)

const taskNotFound = "Task not found"

// Notifier receives assignment and creation events from TaskService.
type Notifier interface {
	NotifyAssignment(ctx context.Context, input AssignmentInput) (*Notice, error)
	NotifyCreated(ctx context.Context, task *models.Task) (*Notice, error)
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	notifier Notifier
	timeout  time.Duration
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, notifier Notifier, timeout time.Duration) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		notifier: notifier,
		timeout:  timeout,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title         string
	Description   string
	Priority      models.TaskPriority
	DueDate       *time.Time
	AssignedTo    []uint64
	TodoChecklist []models.ChecklistItem
	Attachments   []string
}

// UpdateTaskInput is a patch: nil fields are left untouched
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Priority      *models.TaskPriority
	DueDate       *time.Time
	AssignedTo    *[]uint64
	TodoChecklist *[]models.ChecklistItem
	Attachments   *[]string
	Status        *models.TaskStatus

	// toggle sets one item's completion against the locked checklist
	toggle *itemToggle
}

type itemToggle struct {
	index     int
	completed bool
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	AssignedTo *uint64
	Search     string
	Page       int
	PageSize   int
}

// StatusSummary counts tasks per status over the filtered population,
// ignoring the status filter itself
type StatusSummary struct {
	All        int64 `json:"all"`
	Pending    int64 `json:"pendingTasks"`
	InProgress int64 `json:"inProgressTasks"`
	Completed  int64 `json:"completedTasks"`
}

// TaskPage is the result of ListTasks
type TaskPage struct {
	Tasks         []models.Task
	Total         int64
	StatusSummary StatusSummary
}

// CreateTask validates a draft and persists it as Pending. The returned
// notice is the creation record, for the caller to stash in its client cache.
func (s *TaskService) CreateTask(ctx context.Context, actor access.Actor, input CreateTaskInput) (*models.Task, *Notice, error) {
	if !actor.CanCreateTask() {
		return nil, nil, apierrors.Forbiddenf("Only administrators can create tasks")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	switch {
	case title == "":
		return nil, nil, apierrors.Validation("title", "Title is required")
	case description == "":
		return nil, nil, apierrors.Validation("description", "Description is required")
	case input.DueDate == nil || input.DueDate.IsZero():
		return nil, nil, apierrors.Validation("dueDate", "Due date is required")
	case len(normalizeIDs(input.AssignedTo)) == 0:
		return nil, nil, apierrors.Validation("assignedTo", "At least one assignee is required")
	case len(input.TodoChecklist) == 0:
		return nil, nil, apierrors.Validation("todoChecklist", "At least one checklist item is required")
	}
	if err := validateChecklist(input.TodoChecklist); err != nil {
		return nil, nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityLow
	}
	if !priority.Valid() {
		return nil, nil, apierrors.Validation("priority", "Priority must be one of Low, Medium, High")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	assignees := normalizeIDs(input.AssignedTo)
	if err := s.ensureUsersExist(ctx, assignees); err != nil {
		return nil, nil, err
	}

	task := &models.Task{
		Title:         title,
		Description:   description,
		Priority:      priority,
		Status:        models.TaskStatusPending,
		DueDate:       *input.DueDate,
		CreatorID:     actor.UserID,
		TodoChecklist: slices.Clone(input.TodoChecklist),
		Attachments:   nonNil(input.Attachments),
	}
	if err := s.taskRepo.Create(ctx, task, assignees); err != nil {
		return nil, nil, storeError("create task", err, "")
	}

	notice, err := s.notifier.NotifyCreated(ctx, task)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.notifier.NotifyAssignment(ctx, AssignmentInput{
		TaskID:    task.ID,
		Title:     task.Title,
		Assignees: assignees,
		Message:   AssignmentMessage(task.Title),
	}); err != nil {
		return nil, nil, err
	}

	created, err := s.taskRepo.FindByID(ctx, task.ID)
	if err != nil {
		return nil, nil, storeError("load task", err, taskNotFound)
	}
	return created, notice, nil
}

// GetTask returns a task the actor may view
func (s *TaskService) GetTask(ctx context.Context, actor access.Actor, id uint64) (*models.Task, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError("find task", err, taskNotFound)
	}
	if !actor.CanViewTask(task) {
		return nil, apierrors.Forbiddenf("You are not assigned to this task")
	}
	return task, nil
}

// UpdateTask merges the patch under a row lock and re-derives status when
// the checklist changed. Users added to the task are notified once.
// A member not assigned to the task is refused before the patch is validated.
func (s *TaskService) UpdateTask(ctx context.Context, actor access.Actor, id uint64, input UpdateTaskInput) (*models.Task, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if !actor.IsAdmin() {
		task, err := s.taskRepo.FindByID(ctx, id)
		if err != nil {
			return nil, storeError("find task", err, taskNotFound)
		}
		if !actor.CanViewTask(task) {
			return nil, apierrors.Forbiddenf("You are not assigned to this task")
		}
	}

	if err := validatePatch(input); err != nil {
		return nil, err
	}

	if input.AssignedTo != nil {
		// Checked outside the transaction; sqlite pools hold a single connection.
		if err := s.ensureUsersExist(ctx, normalizeIDs(*input.AssignedTo)); err != nil {
			return nil, err
		}
	}

	result, err := s.taskRepo.Update(ctx, id, func(task *models.Task) error {
		return applyPatch(actor, task, input)
	})
	if err != nil {
		return nil, storeError("update task", err, taskNotFound)
	}

	if len(result.Added) > 0 {
		if _, err := s.notifier.NotifyAssignment(ctx, AssignmentInput{
			TaskID:    result.Task.ID,
			Title:     result.Task.Title,
			Assignees: result.Added,
			Message:   AssignmentMessage(result.Task.Title),
		}); err != nil {
			return nil, err
		}
	}

	return result.Task, nil
}

// SetStatus writes a status manually
func (s *TaskService) SetStatus(ctx context.Context, actor access.Actor, id uint64, status models.TaskStatus) (*models.Task, error) {
	return s.UpdateTask(ctx, actor, id, UpdateTaskInput{Status: &status})
}

// ReplaceChecklist swaps the whole checklist and re-derives status
func (s *TaskService) ReplaceChecklist(ctx context.Context, actor access.Actor, id uint64, items []models.ChecklistItem) (*models.Task, error) {
	items = nonNil(items)
	return s.UpdateTask(ctx, actor, id, UpdateTaskInput{TodoChecklist: &items})
}

// SetItemCompleted sets one checklist item's completion flag. The change is
// computed against the locked row, so concurrent toggles of different items
// all survive. Repeating a toggle is a no-op.
func (s *TaskService) SetItemCompleted(ctx context.Context, actor access.Actor, id uint64, index int, completed bool) (*models.Task, error) {
	return s.UpdateTask(ctx, actor, id, UpdateTaskInput{toggle: &itemToggle{index: index, completed: completed}})
}

// DeleteTask soft deletes a task
func (s *TaskService) DeleteTask(ctx context.Context, actor access.Actor, id uint64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return storeError("find task", err, taskNotFound)
	}
	if !actor.CanDeleteTask(task) {
		return apierrors.Forbiddenf("Only administrators can delete tasks")
	}
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return storeError("delete task", err, taskNotFound)
	}
	return nil
}

// ListTasks returns the tasks matching the filter plus per-status counts.
// Members only ever see tasks assigned to them.
func (s *TaskService) ListTasks(ctx context.Context, actor access.Actor, input ListTasksInput) (*TaskPage, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, apierrors.Validation("status", "Status must be one of Pending, In Progress, Completed")
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apierrors.Validation("priority", "Priority must be one of Low, Medium, High")
	}

	filter := repository.TaskFilter{
		Status:         input.Status,
		Priority:       input.Priority,
		AssignedUserID: input.AssignedTo,
		Search:         input.Search,
		Page:           input.Page,
		PageSize:       input.PageSize,
	}
	if !actor.IsAdmin() {
		if input.AssignedTo != nil && *input.AssignedTo != actor.UserID {
			return nil, apierrors.Forbiddenf("Members can only list their own tasks")
		}
		self := actor.UserID
		filter.AssignedUserID = &self
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, storeError("list tasks", err, "")
	}
	counts, err := s.taskRepo.CountBy(ctx, filter.WithoutStatus(), "status")
	if err != nil {
		return nil, storeError("count tasks", err, "")
	}

	return &TaskPage{
		Tasks:         tasks,
		Total:         total,
		StatusSummary: summarize(counts),
	}, nil
}

func (s *TaskService) ensureUsersExist(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	count, err := s.userRepo.CountExisting(ctx, ids)
	if err != nil {
		return storeError("verify assignees", err, "")
	}
	if int(count) != len(ids) {
		return apierrors.Validation("assignedTo", "One or more assigned users do not exist")
	}
	return nil
}

func summarize(counts map[string]int64) StatusSummary {
	summary := StatusSummary{
		Pending:    counts[string(models.TaskStatusPending)],
		InProgress: counts[string(models.TaskStatusInProgress)],
		Completed:  counts[string(models.TaskStatusCompleted)],
	}
	summary.All = summary.Pending + summary.InProgress + summary.Completed
	return summary
}

func validatePatch(input UpdateTaskInput) error {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return apierrors.Validation("title", "Title cannot be empty")
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) == "" {
		return apierrors.Validation("description", "Description cannot be empty")
	}
	if input.DueDate != nil && input.DueDate.IsZero() {
		return apierrors.Validation("dueDate", "Due date cannot be empty")
	}
	if input.AssignedTo != nil && len(normalizeIDs(*input.AssignedTo)) == 0 {
		return apierrors.Validation("assignedTo", "At least one assignee is required")
	}
	if input.TodoChecklist != nil {
		if err := validateChecklist(*input.TodoChecklist); err != nil {
			return err
		}
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return apierrors.Validation("priority", "Priority must be one of Low, Medium, High")
	}
	if input.Status != nil && !input.Status.Valid() {
		return apierrors.Validation("status", "Status must be one of Pending, In Progress, Completed")
	}
	return nil
}

func validateChecklist(items []models.ChecklistItem) error {
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			return apierrors.Validation("todoChecklist", "Checklist item text cannot be empty")
		}
	}
	return nil
}

// applyPatch runs inside the row lock. It checks the actor against what the
// patch actually changes, then merges it.
func applyPatch(actor access.Actor, task *models.Task, input UpdateTaskInput) error {
	current := lifecycle.Checklist(task.TodoChecklist)
	next := current
	checklistChanged := false

	switch {
	case input.toggle != nil:
		updated, ok := current.SetCompleted(input.toggle.index, input.toggle.completed)
		if !ok {
			return apierrors.Validation("index", "Checklist item index out of range")
		}
		next = updated
		checklistChanged = current[input.toggle.index].Completed != input.toggle.completed
	case input.TodoChecklist != nil:
		next, checklistChanged = lifecycle.Checklist(*input.TodoChecklist), true
	}

	var newAssignees []uint64
	if input.AssignedTo != nil {
		newAssignees = normalizeIDs(*input.AssignedTo)
	}

	change := access.Change{
		Fields: (input.Title != nil && strings.TrimSpace(*input.Title) != task.Title) ||
			(input.Description != nil && strings.TrimSpace(*input.Description) != task.Description) ||
			(input.Priority != nil && *input.Priority != task.Priority) ||
			(input.DueDate != nil && !input.DueDate.Equal(task.DueDate)) ||
			(input.Attachments != nil && !slices.Equal(*input.Attachments, task.Attachments)),
		Assignees: input.AssignedTo != nil && !sameIDs(newAssignees, task.AssigneeIDs()),
		Status:    input.Status != nil,
	}
	if checklistChanged || input.toggle != nil {
		change.ChecklistShape = !current.SameItems(next)
		change.ChecklistToggle = !change.ChecklistShape
	}

	if !actor.CanChange(task, change) {
		if !actor.IsAdmin() && !task.IsAssignedTo(actor.UserID) {
			return apierrors.Forbiddenf("You are not assigned to this task")
		}
		return apierrors.Forbiddenf("Members may only change status and checklist completion")
	}

	if input.Title != nil {
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = *input.DueDate
	}
	if input.Attachments != nil {
		task.Attachments = nonNil(*input.Attachments)
	}
	if input.AssignedTo != nil {
		task.Assignments = make([]models.TaskAssignment, 0, len(newAssignees))
		for _, userID := range newAssignees {
			task.Assignments = append(task.Assignments, models.TaskAssignment{TaskID: task.ID, UserID: userID})
		}
	}

	var override lifecycle.Override
	if input.Status != nil {
		if !lifecycle.CanTransition(task.Status, *input.Status) {
			return apierrors.Validation("status", "Status transition is not allowed")
		}
		task.Status = *input.Status
		override = lifecycle.Manual(*input.Status)
	}
	if checklistChanged {
		task.TodoChecklist = next
		task.Status = lifecycle.Derive(next, override)
	}

	return nil
}

func sameIDs(a, b []uint64) bool {
	return slices.Equal(normalizeIDs(a), normalizeIDs(b))
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return slices.Clone(values)
}
