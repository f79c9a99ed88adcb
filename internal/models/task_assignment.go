package models

import (
	"time"
)

type TaskAssignment struct {
	TaskID    uint64    `gorm:"primarykey" json:"task_id"`
	UserID    uint64    `gorm:"primarykey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
