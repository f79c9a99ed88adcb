package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/stellar-tasks/internal/models"
)

func assignedTask(userIDs ...uint64) *models.Task {
	task := &models.Task{ID: 1}
	for _, id := range userIDs {
		task.Assignments = append(task.Assignments, models.TaskAssignment{TaskID: 1, UserID: id})
	}
	return task
}

func TestAdminMayDoAnything(t *testing.T) {
	admin := Admin(1)
	task := assignedTask(2)

	assert.True(t, admin.CanCreateTask())
	assert.True(t, admin.CanDeleteTask(task))
	assert.True(t, admin.CanViewTask(task))
	assert.True(t, admin.CanChange(task, Change{Fields: true, Assignees: true, ChecklistShape: true}))
	assert.True(t, admin.CanViewGlobalDashboard())
}

func TestMemberLimitedToStatusAndToggles(t *testing.T) {
	member := Member(2)
	task := assignedTask(2)

	assert.False(t, member.CanCreateTask())
	assert.False(t, member.CanDeleteTask(task))
	assert.True(t, member.CanViewTask(task))
	assert.True(t, member.CanChange(task, Change{Status: true}))
	assert.True(t, member.CanChange(task, Change{ChecklistToggle: true}))
	assert.False(t, member.CanChange(task, Change{Fields: true}))
	assert.False(t, member.CanChange(task, Change{Assignees: true}))
	assert.False(t, member.CanChange(task, Change{ChecklistShape: true}))
	assert.False(t, member.CanViewGlobalDashboard())
}

func TestMemberNotAssigned(t *testing.T) {
	outsider := Member(3)
	task := assignedTask(1, 2)

	assert.False(t, outsider.CanViewTask(task))
	assert.False(t, outsider.CanChange(task, Change{Status: true}))
}

func TestSeesNotification(t *testing.T) {
	created := models.NotificationKindCreated
	assigned := models.NotificationKindAssigned

	assert.True(t, Admin(1).SeesNotification(created, []uint64{1}))
	assert.False(t, Admin(1).SeesNotification(assigned, []uint64{1}))
	assert.True(t, Member(2).SeesNotification(assigned, []uint64{2, 3}))
	assert.False(t, Member(4).SeesNotification(assigned, []uint64{2, 3}))
	assert.False(t, Member(2).SeesNotification(created, []uint64{2}))
}
