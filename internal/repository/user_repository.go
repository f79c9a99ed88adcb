package repository

import (
	"context"

	"github.com/yukikurage/stellar-tasks/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Count counts all users
func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

// CountActive counts users assigned to at least one live task that is not completed
func (r *GormUserRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("EXISTS (?)", r.db.Model(&models.TaskAssignment{}).
			Select("1").
			Joins("JOIN tasks ON tasks.id = task_assignments.task_id").
			Where("task_assignments.user_id = users.id").
			Where("tasks.deleted_at IS NULL").
			Where("tasks.status <> ?", models.TaskStatusCompleted)).
		Count(&count).Error
	return count, err
}

// CountExisting counts how many of the given user IDs exist
func (r *GormUserRepository) CountExisting(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}
