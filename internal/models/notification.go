package models

import "time"

type NotificationKind string

const (
	// NotificationKindAssigned targets users newly assigned to a task.
	NotificationKindAssigned NotificationKind = "assigned"
	// NotificationKindCreated records that an administrator created a task.
	NotificationKindCreated NotificationKind = "created"
)

// Notification references its task weakly: the task may be deleted while the
// notification lives on. Read is the shared flag for the administrator feed;
// assignees each carry their own flag on NotificationRecipient.
type Notification struct {
	ID        string           `gorm:"type:varchar(36);primarykey" json:"id"`
	TaskID    uint64           `gorm:"not null;index" json:"task_id"`
	Title     string           `gorm:"type:varchar(255)" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Kind      NotificationKind `gorm:"type:varchar(20);not null" json:"kind"`
	DedupKey  string           `gorm:"type:varchar(64);index" json:"-"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`

	Recipients []NotificationRecipient `gorm:"foreignKey:NotificationID" json:"-"`
}

// RecipientIDs returns the ids of the preloaded recipients.
func (n *Notification) RecipientIDs() []uint64 {
	ids := make([]uint64, 0, len(n.Recipients))
	for _, r := range n.Recipients {
		ids = append(ids, r.UserID)
	}
	return ids
}

type NotificationRecipient struct {
	NotificationID string `gorm:"type:varchar(36);primarykey" json:"notification_id"`
	UserID         uint64 `gorm:"primarykey;index" json:"user_id"`
	Read           bool   `gorm:"not null;default:false" json:"read"`
}

// ReadBy reports whether userID has read the notification. Users outside the
// recipient list fall back to the shared flag.
func (n *Notification) ReadBy(userID uint64) bool {
	for _, r := range n.Recipients {
		if r.UserID == userID {
			return r.Read
		}
	}
	return n.Read
}
