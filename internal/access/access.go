// Package access evaluates what a caller may do with a task. Every operation
// boundary asks the caller's Actor rather than branching on the role itself.
package access

import (
	"github.com/yukikurage/stellar-tasks/internal/models"
)

// Actor is an authenticated caller.
type Actor struct {
	UserID uint64
	Role   models.UserRole
}

// Admin returns an administrator actor.
func Admin(userID uint64) Actor {
	return Actor{UserID: userID, Role: models.RoleAdmin}
}

// Member returns a member actor.
func Member(userID uint64) Actor {
	return Actor{UserID: userID, Role: models.RoleMember}
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Change describes which parts of a task a write touches.
type Change struct {
	Fields          bool // title, description, priority, due date or attachments
	Assignees       bool
	Status          bool
	ChecklistShape  bool // items added, removed, reordered or renamed
	ChecklistToggle bool // completion flags only
}

// CanCreateTask reports whether the actor may create tasks.
func (a Actor) CanCreateTask() bool {
	return a.IsAdmin()
}

// CanDeleteTask reports whether the actor may delete task.
func (a Actor) CanDeleteTask(task *models.Task) bool {
	return a.IsAdmin()
}

// CanViewTask reports whether the actor may read task.
func (a Actor) CanViewTask(task *models.Task) bool {
	return a.IsAdmin() || task.IsAssignedTo(a.UserID)
}

// CanChange reports whether the actor may apply change to task. Members are
// limited to status and checklist completion on tasks assigned to them.
func (a Actor) CanChange(task *models.Task, change Change) bool {
	if a.IsAdmin() {
		return true
	}
	if !task.IsAssignedTo(a.UserID) {
		return false
	}
	return !change.Fields && !change.Assignees && !change.ChecklistShape
}

// CanViewGlobalDashboard reports whether the actor may see organization-wide
// statistics.
func (a Actor) CanViewGlobalDashboard() bool {
	return a.IsAdmin()
}

// SeesNotification reports whether a notification of kind addressed to
// recipients belongs in the actor's notification feed.
// Administrators follow task creation; members follow their own assignments.
func (a Actor) SeesNotification(kind models.NotificationKind, recipients []uint64) bool {
	if a.IsAdmin() {
		return kind == models.NotificationKindCreated
	}
	if kind != models.NotificationKindAssigned {
		return false
	}
	for _, id := range recipients {
		if id == a.UserID {
			return true
		}
	}
	return false
}
