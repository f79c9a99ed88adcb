package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Name         string         `gorm:"type:varchar(255)" json:"name"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         UserRole       `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	CreatedTasks []Task           `gorm:"foreignKey:CreatorID" json:"-"`
	Assignments  []TaskAssignment `gorm:"foreignKey:UserID" json:"-"`
}
