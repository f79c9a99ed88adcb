package repository

import (
	"context"
	"strings"
	"time"

	"github.com/yukikurage/stellar-tasks/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create persists a task together with its assignees
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task, assigneeIDs []uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}
		if err := assignUsers(tx, task.ID, assigneeIDs); err != nil {
			return err
		}
		return loadAssignments(tx, task)
	})
}

// FindByID finds a live task by ID with its creator and assignments loaded
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Assignments", orderAssignments).
		Preload("Assignments.User").
		First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Update locks the task row and applies mutate inside one transaction, so two
// concurrent writers to the same task are serialized and each sees the other's
// committed checklist.
func (r *GormTaskRepository) Update(ctx context.Context, id uint64, mutate TaskMutation) (*UpdateResult, error) {
	var result *UpdateResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := lockingQuery(tx).First(&task, id).Error; err != nil {
			return err
		}
		if err := loadAssignments(tx, &task); err != nil {
			return err
		}

		before := task.AssigneeIDs()
		if err := mutate(&task); err != nil {
			return err
		}
		after := uniqueIDs(task.AssigneeIDs())

		added := difference(after, before)
		removed := difference(before, after)

		if err := tx.Omit(clause.Associations).Save(&task).Error; err != nil {
			return err
		}
		if len(removed) > 0 {
			if err := tx.Where("task_id = ? AND user_id IN ?", task.ID, removed).
				Delete(&models.TaskAssignment{}).Error; err != nil {
				return err
			}
		}
		if err := assignUsers(tx, task.ID, added); err != nil {
			return err
		}
		if err := loadAssignments(tx, &task); err != nil {
			return err
		}

		result = &UpdateResult{Task: &task, Added: added, Removed: removed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Delete soft deletes a task. Assignments are kept so the row stays intact for
// history; every query excludes soft-deleted tasks.
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&models.Task{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List retrieves tasks matching the filter
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := r.filtered(ctx, filter)
	switch filter.Order {
	case OrderUpdatedDesc:
		listQuery = listQuery.Order("tasks.updated_at DESC").Order("tasks.id DESC")
	default:
		listQuery = listQuery.Order("tasks.created_at DESC").Order("tasks.id DESC")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	} else if filter.Limit > 0 {
		listQuery = listQuery.Limit(filter.Limit)
	}

	tasks := []models.Task{}
	if err := listQuery.
		Preload("Creator").
		Preload("Assignments", orderAssignments).
		Preload("Assignments.User").
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// CountBy groups the tasks matching the filter by status or priority
func (r *GormTaskRepository) CountBy(ctx context.Context, filter TaskFilter, column string) (map[string]int64, error) {
	if column != "status" && column != "priority" {
		return nil, gorm.ErrInvalidField
	}

	var rows []struct {
		GroupKey   string
		GroupCount int64
	}
	if err := r.filtered(ctx, filter).
		Select("tasks." + column + " AS group_key, COUNT(*) AS group_count").
		Group("tasks." + column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.GroupKey] = row.GroupCount
	}
	return counts, nil
}

// CountOverdue counts matching tasks due before now that are not completed
func (r *GormTaskRepository) CountOverdue(ctx context.Context, filter TaskFilter, now time.Time) (int64, error) {
	var count int64
	err := r.filtered(ctx, filter).
		Where("tasks.due_date < ?", now).
		Where("tasks.status <> ?", models.TaskStatusCompleted).
		Count(&count).Error
	return count, err
}

// filtered builds the base query shared by listing and counting.
func (r *GormTaskRepository) filtered(ctx context.Context, filter TaskFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedUserID != nil {
		assignmentSubQuery := r.db.Model(&models.TaskAssignment{}).
			Select("1").
			Where("task_assignments.task_id = tasks.id").
			Where("task_assignments.user_id = ?", *filter.AssignedUserID)
		query = query.Where("EXISTS (?)", assignmentSubQuery)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where(
			"(LOWER(tasks.title) LIKE ? ESCAPE '!' OR LOWER(tasks.description) LIKE ? ESCAPE '!')",
			pattern, pattern,
		)
	}

	return query
}

// lockingQuery adds FOR UPDATE where the dialect supports it. SQLite has no row
// locks but serializes writers, which gives the same guarantee.
func lockingQuery(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func orderAssignments(db *gorm.DB) *gorm.DB {
	return db.Order("task_assignments.created_at ASC").Order("task_assignments.user_id ASC")
}

func loadAssignments(tx *gorm.DB, task *models.Task) error {
	task.Assignments = nil
	return tx.Where("task_id = ?", task.ID).
		Scopes(orderAssignments).
		Preload("User").
		Find(&task.Assignments).Error
}

func assignUsers(tx *gorm.DB, taskID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	assignments := make([]models.TaskAssignment, len(userIDs))
	for i, userID := range userIDs {
		assignments[i] = models.TaskAssignment{
			TaskID: taskID,
			UserID: userID,
		}
	}
	return tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&assignments).Error
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// difference returns the values of a that are not in b, keeping a's order.
func difference(a, b []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(b))
	for _, v := range b {
		seen[v] = struct{}{}
	}
	var out []uint64
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// uniqueIDs removes duplicate values from a slice of uint64
func uniqueIDs(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
