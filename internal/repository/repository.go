package repository

import (
	"context"
	"time"

	"github.com/yukikurage/stellar-tasks/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create persists a task together with its assignees
	Create(ctx context.Context, task *models.Task, assigneeIDs []uint64) error

	// FindByID finds a live task by ID with its creator and assignments loaded
	FindByID(ctx context.Context, id uint64) (*models.Task, error)

	// Update locks the task row and applies mutate inside one transaction
	Update(ctx context.Context, id uint64, mutate TaskMutation) (*UpdateResult, error)

	// Delete soft deletes a task
	Delete(ctx context.Context, id uint64) error

	// List retrieves tasks matching the filter
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// CountBy groups the tasks matching the filter by column ("status" or "priority")
	CountBy(ctx context.Context, filter TaskFilter, column string) (map[string]int64, error)

	// CountOverdue counts matching tasks due before now that are not completed
	CountOverdue(ctx context.Context, filter TaskFilter, now time.Time) (int64, error)
}

// TaskMutation edits a locked task in place. Replacing task.Assignments
// changes the assignee set.
type TaskMutation func(task *models.Task) error

// UpdateResult is the outcome of TaskRepository.Update
type UpdateResult struct {
	Task *models.Task
	// Added and Removed hold the assignee ids that entered and left the task
	Added   []uint64
	Removed []uint64
}

// TaskOrder selects the sort applied by List
type TaskOrder int

const (
	// OrderCreatedDesc lists newest-created first
	OrderCreatedDesc TaskOrder = iota
	// OrderUpdatedDesc lists most recently touched first
	OrderUpdatedDesc
)

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	AssignedUserID *uint64
	Search         string
	Order          TaskOrder
	Page           int
	PageSize       int
	Limit          int
}

// WithoutStatus returns a copy of the filter with the status narrowing removed
// and no paging, the population a status summary is computed over.
func (f TaskFilter) WithoutStatus() TaskFilter {
	f.Status = nil
	f.Page, f.PageSize, f.Limit = 0, 0, 0
	return f
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// Count counts all users
	Count(ctx context.Context) (int64, error)

	// CountActive counts users assigned to at least one live task that is not completed
	CountActive(ctx context.Context) (int64, error)

	// CountExisting counts how many of the given user IDs exist
	CountExisting(ctx context.Context, ids []uint64) (int64, error)
}

// NotificationRepository defines the interface for the durable notification store
type NotificationRepository interface {
	// CreateOnce stores n with its recipients unless a notification with the same
	// dedup key was created at or after since; in that case the existing one is
	// returned and created is false.
	CreateOnce(ctx context.Context, n *models.Notification, since time.Time) (stored *models.Notification, created bool, err error)

	// ListForRecipient lists assignment notifications addressed to userID, newest first
	ListForRecipient(ctx context.Context, userID uint64, limit int) ([]models.Notification, error)

	// ListByKind lists notifications of one kind, newest first
	ListByKind(ctx context.Context, kind models.NotificationKind, limit int) ([]models.Notification, error)

	// FindByID returns the notification with its recipients
	FindByID(ctx context.Context, id string) (*models.Notification, error)

	// MarkRead sets the shared read flag; found is false when id is unknown
	MarkRead(ctx context.Context, id string) (found bool, err error)

	// MarkReadFor sets read for one recipient only; found is false when userID
	// is not a recipient of id
	MarkReadFor(ctx context.Context, id string, userID uint64) (found bool, err error)
}
