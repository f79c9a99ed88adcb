package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

// TaskStatuses lists every status in display order.
var TaskStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

// TaskPriorities lists every priority from lowest to highest.
var TaskPriorities = []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh}

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// ChecklistItem is one entry of a task's todo checklist.
type ChecklistItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type Task struct {
	ID            uint64          `gorm:"primarykey" json:"id"`
	Title         string          `gorm:"not null" json:"title"`
	Description   string          `gorm:"type:text;not null" json:"description"`
	Priority      TaskPriority    `gorm:"type:varchar(20);not null;default:'Low'" json:"priority"`
	Status        TaskStatus      `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	DueDate       time.Time       `gorm:"not null" json:"due_date"`
	CreatorID     uint64          `gorm:"not null" json:"creator_id"`
	TodoChecklist []ChecklistItem `gorm:"type:text;serializer:json" json:"todo_checklist"`
	Attachments   []string        `gorm:"type:text;serializer:json" json:"attachments"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Creator     User             `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
}

// AssigneeIDs returns the ids of the preloaded assignments in stored order.
func (t *Task) AssigneeIDs() []uint64 {
	ids := make([]uint64, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}

// IsAssignedTo reports whether userID is among the preloaded assignments.
func (t *Task) IsAssignedTo(userID uint64) bool {
	for _, a := range t.Assignments {
		if a.UserID == userID {
			return true
		}
	}
	return false
}
