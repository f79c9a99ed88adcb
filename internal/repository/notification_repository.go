package repository

import (
	"context"
	"time"

	"github.com/yukikurage/stellar-tasks/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

// CreateOnce stores n unless an identical delivery happened at or after since
func (r *GormNotificationRepository) CreateOnce(ctx context.Context, n *models.Notification, since time.Time) (*models.Notification, bool, error) {
	var stored *models.Notification
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Notification
		err := tx.Preload("Recipients").
			Where("dedup_key = ? AND created_at >= ?", n.DedupKey, since).
			Order("created_at DESC").
			Limit(1).
			Find(&existing).Error
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			stored = &existing[0]
			return nil
		}

		if err := tx.Omit(clause.Associations).Create(n).Error; err != nil {
			return err
		}
		if len(n.Recipients) > 0 {
			for i := range n.Recipients {
				n.Recipients[i].NotificationID = n.ID
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&n.Recipients).Error; err != nil {
				return err
			}
		}
		stored = n
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return stored, created, nil
}

// FindByID returns the notification with its recipients
func (r *GormNotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var found []models.Notification
	err := r.db.WithContext(ctx).
		Preload("Recipients").
		Where("id = ?", id).
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &found[0], nil
}

// ListForRecipient lists assignment notifications addressed to userID, newest
// first. Read reflects userID's own flag.
func (r *GormNotificationRepository) ListForRecipient(ctx context.Context, userID uint64, limit int) ([]models.Notification, error) {
	notifications := []models.Notification{}
	query := r.db.WithContext(ctx).
		Preload("Recipients").
		Where("kind = ?", models.NotificationKindAssigned).
		Where("EXISTS (?)", r.db.Model(&models.NotificationRecipient{}).
			Select("1").
			Where("notification_recipients.notification_id = notifications.id").
			Where("notification_recipients.user_id = ?", userID)).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&notifications).Error; err != nil {
		return nil, err
	}
	for i := range notifications {
		notifications[i].Read = notifications[i].ReadBy(userID)
	}
	return notifications, nil
}

// ListByKind lists notifications of one kind, newest first
func (r *GormNotificationRepository) ListByKind(ctx context.Context, kind models.NotificationKind, limit int) ([]models.Notification, error) {
	notifications := []models.Notification{}
	query := r.db.WithContext(ctx).
		Preload("Recipients").
		Where("kind = ?", kind).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead sets read on the notification
func (r *GormNotificationRepository) MarkRead(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// MySQL reports zero affected rows when the value was already true.
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkReadFor sets read for one recipient of the notification
func (r *GormNotificationRepository) MarkReadFor(ctx context.Context, id string, userID uint64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.NotificationRecipient{}).
		Where("notification_id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.NotificationRecipient{}).
		Where("notification_id = ? AND user_id = ?", id, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
