package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stellar-tasks/internal/access"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"github.com/yukikurage/stellar-tasks/internal/repository"
)

func newNotificationService(t *testing.T, clock Clock) *NotificationService {
	db := newTestDB(t)
	return NewNotificationService(repository.NewNotificationRepository(db), time.Second).WithClock(clock)
}

func TestNotifyAssignment_Idempotent(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newNotificationService(t, fixedClock(start, time.Second))
	ctx := context.Background()

	input := AssignmentInput{TaskID: 7, Title: "Plan", Assignees: []uint64{2, 1}, Message: "You have been assigned a new task: Plan"}
	first, err := service.NotifyAssignment(ctx, input)
	require.NoError(t, err)

	// A retried request with the assignees in another order.
	input.Assignees = []uint64{1, 2, 2}
	second, err := service.NotifyAssignment(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	for _, userID := range []uint64{1, 2} {
		feed, err := service.ListFor(ctx, access.Member(userID), nil)
		require.NoError(t, err)
		require.Len(t, feed.Notifications, 1)
		assert.Equal(t, uint64(7), feed.Notifications[0].TaskID)
		assert.Equal(t, 1, feed.UnreadCount)
	}
}

func TestNotifyAssignment_Validation(t *testing.T) {
	service := newNotificationService(t, time.Now)
	ctx := context.Background()

	_, err := service.NotifyAssignment(ctx, AssignmentInput{Assignees: []uint64{1}})
	assert.ErrorIs(t, err, apierrors.ErrValidation)

	_, err = service.NotifyAssignment(ctx, AssignmentInput{TaskID: 1})
	assert.ErrorIs(t, err, apierrors.ErrValidation)

	notice, err := service.NotifyAssignment(ctx, AssignmentInput{TaskID: 1, Title: "Plan", Assignees: []uint64{3}})
	require.NoError(t, err)
	assert.Equal(t, AssignmentMessage("Plan"), notice.Message)
}

func TestListFor_FiltersByRole(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newNotificationService(t, fixedClock(start, time.Minute))
	ctx := context.Background()

	task := &models.Task{ID: 3, Title: "Audit", Assignments: []models.TaskAssignment{{UserID: 5}}}
	_, err := service.NotifyCreated(ctx, task)
	require.NoError(t, err)
	_, err = service.NotifyAssignment(ctx, AssignmentInput{TaskID: 3, Title: "Audit", Assignees: []uint64{5}})
	require.NoError(t, err)

	adminFeed, err := service.ListFor(ctx, access.Admin(1), nil)
	require.NoError(t, err)
	require.Len(t, adminFeed.Notifications, 1)
	assert.Equal(t, models.NotificationKindCreated, adminFeed.Notifications[0].Kind)

	memberFeed, err := service.ListFor(ctx, access.Member(5), nil)
	require.NoError(t, err)
	require.Len(t, memberFeed.Notifications, 1)
	assert.Equal(t, models.NotificationKindAssigned, memberFeed.Notifications[0].Kind)

	otherFeed, err := service.ListFor(ctx, access.Member(6), nil)
	require.NoError(t, err)
	assert.Empty(t, otherFeed.Notifications)
	assert.Zero(t, otherFeed.UnreadCount)
}

func TestListFor_MergesClientCache(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newNotificationService(t, fixedClock(start, time.Minute))
	ctx := context.Background()

	stored, err := service.NotifyCreated(ctx, &models.Task{ID: 1, Title: "Stored"})
	require.NoError(t, err)

	cache := NewMemoryCache(
		// Older optimistic copy of task 1: the durable one wins.
		Notice{ID: "local-1", TaskID: 1, Kind: models.NotificationKindCreated, CreatedAt: start.Add(-time.Hour)},
		// Only the client knows about task 2 so far.
		Notice{ID: "local-2", TaskID: 2, Kind: models.NotificationKindCreated, CreatedAt: start.Add(time.Hour), Read: true},
		// Members' notices are never shown to administrators.
		Notice{ID: "local-3", TaskID: 3, Kind: models.NotificationKindAssigned, AssignedTo: []uint64{1}, CreatedAt: start},
	)

	feed, err := service.ListFor(ctx, access.Admin(1), cache)
	require.NoError(t, err)
	require.Len(t, feed.Notifications, 2)
	assert.Equal(t, "local-2", feed.Notifications[0].ID)
	assert.Equal(t, stored.ID, feed.Notifications[1].ID)
	assert.Equal(t, 1, feed.UnreadCount)
}

func TestMergeNotices(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	durable := []Notice{
		{ID: "d1", TaskID: 1, CreatedAt: base},
		{ID: "d2", TaskID: 2, CreatedAt: base.Add(2 * time.Minute)},
	}
	cached := []Notice{
		{ID: "c1", TaskID: 1, CreatedAt: base.Add(time.Minute)},
		{ID: "c2", TaskID: 2, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "c3", TaskID: 3, CreatedAt: base.Add(-time.Minute)},
	}

	merged := MergeNotices(durable, cached)

	ids := make([]string, 0, len(merged))
	for _, n := range merged {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"d2", "c1", "c3"}, ids)

	seen := map[uint64]bool{}
	for i, n := range merged {
		assert.False(t, seen[n.TaskID], "duplicate task %d", n.TaskID)
		seen[n.TaskID] = true
		if i > 0 {
			assert.False(t, n.CreatedAt.After(merged[i-1].CreatedAt))
		}
	}

	assert.Empty(t, MergeNotices(nil, nil))
}

func TestMarkRead(t *testing.T) {
	service := newNotificationService(t, time.Now)
	ctx := context.Background()

	notice, err := service.NotifyAssignment(ctx, AssignmentInput{TaskID: 1, Title: "Read me", Assignees: []uint64{4}})
	require.NoError(t, err)

	require.NoError(t, service.MarkRead(ctx, access.Member(4), notice.ID, nil))
	require.NoError(t, service.MarkRead(ctx, access.Member(4), notice.ID, nil))

	feed, err := service.ListFor(ctx, access.Member(4), nil)
	require.NoError(t, err)
	require.Len(t, feed.Notifications, 1)
	assert.True(t, feed.Notifications[0].Read)
	assert.Zero(t, feed.UnreadCount)

	cache := NewMemoryCache(Notice{ID: "local", TaskID: 9, Kind: models.NotificationKindCreated})
	require.NoError(t, service.MarkRead(ctx, access.Admin(1), "local", cache))
	cached, err := cache.Notices()
	require.NoError(t, err)
	assert.True(t, cached[0].Read)

	assert.ErrorIs(t, service.MarkRead(ctx, access.Admin(1), "missing", cache), apierrors.ErrNotFound)
}

func TestMarkRead_EachAssigneeReadsSeparately(t *testing.T) {
	service := newNotificationService(t, time.Now)
	ctx := context.Background()

	notice, err := service.NotifyAssignment(ctx, AssignmentInput{TaskID: 3, Title: "Shared", Assignees: []uint64{1, 2}})
	require.NoError(t, err)

	require.NoError(t, service.MarkRead(ctx, access.Member(1), notice.ID, nil))

	first, err := service.ListFor(ctx, access.Member(1), nil)
	require.NoError(t, err)
	require.Len(t, first.Notifications, 1)
	assert.True(t, first.Notifications[0].Read)
	assert.Zero(t, first.UnreadCount)

	second, err := service.ListFor(ctx, access.Member(2), nil)
	require.NoError(t, err)
	require.Len(t, second.Notifications, 1)
	assert.False(t, second.Notifications[0].Read)
	assert.Equal(t, 1, second.UnreadCount)
}

func TestMarkRead_OutsideFeedIsNotFound(t *testing.T) {
	service := newNotificationService(t, time.Now)
	ctx := context.Background()

	assigned, err := service.NotifyAssignment(ctx, AssignmentInput{TaskID: 5, Title: "Private", Assignees: []uint64{2}})
	require.NoError(t, err)
	created, err := service.NotifyCreated(ctx, &models.Task{ID: 6, Title: "Broadcast"})
	require.NoError(t, err)

	assert.ErrorIs(t, service.MarkRead(ctx, access.Member(3), assigned.ID, nil), apierrors.ErrNotFound)
	assert.ErrorIs(t, service.MarkRead(ctx, access.Admin(1), assigned.ID, nil), apierrors.ErrNotFound)
	assert.ErrorIs(t, service.MarkRead(ctx, access.Member(2), created.ID, nil), apierrors.ErrNotFound)

	feed, err := service.ListFor(ctx, access.Member(2), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.UnreadCount)

	require.NoError(t, service.MarkRead(ctx, access.Admin(1), created.ID, nil))
	adminFeed, err := service.ListFor(ctx, access.Admin(1), nil)
	require.NoError(t, err)
	assert.Zero(t, adminFeed.UnreadCount)
}

func TestNotificationService_DependencyFailure(t *testing.T) {
	db := newBrokenDB(t)
	service := NewNotificationService(repository.NewNotificationRepository(db), time.Second)

	_, err := service.ListFor(context.Background(), access.Member(1), nil)
	assert.ErrorIs(t, err, apierrors.ErrDependency)
}
