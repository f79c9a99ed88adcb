package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/stellar-tasks/internal/access"
	"github.com/yukikurage/stellar-tasks/internal/constants"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"github.com/yukikurage/stellar-tasks/internal/repository"
	"gorm.io/gorm"
)

const notificationNotFound = "Notification not found"

// Notice is a notification as presented to a caller.
type Notice struct {
	ID         string                  `json:"id"`
	TaskID     uint64                  `json:"taskId"`
	Title      string                  `json:"title"`
	Message    string                  `json:"message"`
	Kind       models.NotificationKind `json:"kind"`
	AssignedTo []uint64                `json:"assignedTo"`
	Read       bool                    `json:"read"`
	CreatedAt  time.Time               `json:"createdAt"`
}

func noticeFromModel(n models.Notification) Notice {
	return Notice{
		ID:         n.ID,
		TaskID:     n.TaskID,
		Title:      n.Title,
		Message:    n.Message,
		Kind:       n.Kind,
		AssignedTo: n.RecipientIDs(),
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
}

// NoticeFeed is the merged view returned to a polling client.
type NoticeFeed struct {
	Notifications []Notice `json:"notifications"`
	UnreadCount   int      `json:"unreadCount"`
}

// ClientCache is the transient store of notices a single client produced
// before the server confirmed them. It is advisory and may be empty.
type ClientCache interface {
	Notices() ([]Notice, error)
	Add(n Notice) error
	// MarkRead reports whether the cache held the notice.
	MarkRead(id string) (bool, error)
}

// AssignmentMessage is the text sent to users newly assigned to a task.
func AssignmentMessage(title string) string {
	return "You have been assigned a new task: " + title
}

// CreatedMessage is the text of the notice recorded when a task is created.
func CreatedMessage(title string) string {
	return fmt.Sprintf("Task %q created successfully", title)
}

// NotificationService generates notification records and merges the durable
// store with a client cache into one feed per caller.
type NotificationService struct {
	repo    repository.NotificationRepository
	timeout time.Duration
	window  time.Duration
	now     Clock
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo repository.NotificationRepository, timeout time.Duration) *NotificationService {
	return &NotificationService{
		repo:    repo,
		timeout: timeout,
		window:  constants.NotificationDedupWindow,
		now:     time.Now,
	}
}

// WithClock replaces the service clock.
func (s *NotificationService) WithClock(now Clock) *NotificationService {
	s.now = now
	return s
}

// AssignmentInput describes one assignment delivery.
type AssignmentInput struct {
	TaskID    uint64
	Title     string
	Assignees []uint64
	Message   string
}

// NotifyAssignment records one notification addressed to every assignee.
// Repeating the same (task, assignees, message) within the dedup window
// returns the first record instead of storing another.
func (s *NotificationService) NotifyAssignment(ctx context.Context, input AssignmentInput) (*Notice, error) {
	if input.TaskID == 0 {
		return nil, apierrors.Validation("taskId", "Task ID is required")
	}
	recipients := normalizeIDs(input.Assignees)
	if len(recipients) == 0 {
		return nil, apierrors.Validation("assignedTo", "At least one assignee is required")
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		message = AssignmentMessage(input.Title)
	}

	return s.store(ctx, models.NotificationKindAssigned, input.TaskID, input.Title, message, recipients)
}

// NotifyCreated records that a task was created. Administrators see it in
// their feed.
func (s *NotificationService) NotifyCreated(ctx context.Context, task *models.Task) (*Notice, error) {
	return s.store(ctx, models.NotificationKindCreated, task.ID, task.Title, CreatedMessage(task.Title), normalizeIDs(task.AssigneeIDs()))
}

func (s *NotificationService) store(ctx context.Context, kind models.NotificationKind, taskID uint64, title, message string, recipients []uint64) (*Notice, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	n := &models.Notification{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		DedupKey:  dedupKey(kind, taskID, recipients, message),
		CreatedAt: now,
	}
	for _, id := range recipients {
		n.Recipients = append(n.Recipients, models.NotificationRecipient{UserID: id})
	}

	stored, _, err := s.repo.CreateOnce(ctx, n, now.Add(-s.window))
	if err != nil {
		return nil, apierrors.Classify("store notification", err)
	}

	notice := noticeFromModel(*stored)
	return &notice, nil
}

// ListFor returns the caller's feed: durable notifications and the client
// cache merged by task, newest first.
func (s *NotificationService) ListFor(ctx context.Context, actor access.Actor, cache ClientCache) (*NoticeFeed, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var (
		stored []models.Notification
		err    error
	)
	if actor.IsAdmin() {
		stored, err = s.repo.ListByKind(ctx, models.NotificationKindCreated, constants.NotificationFeedLimit)
	} else {
		stored, err = s.repo.ListForRecipient(ctx, actor.UserID, constants.NotificationFeedLimit)
	}
	if err != nil {
		return nil, apierrors.Classify("list notifications", err)
	}

	durable := make([]Notice, 0, len(stored))
	for _, n := range stored {
		durable = append(durable, noticeFromModel(n))
	}

	var cached []Notice
	if cache != nil {
		all, err := cache.Notices()
		if err != nil {
			return nil, apierrors.Dependency("read client cache", err)
		}
		for _, n := range all {
			if actor.SeesNotification(n.Kind, n.AssignedTo) {
				cached = append(cached, n)
			}
		}
	}

	merged := MergeNotices(durable, cached)
	feed := &NoticeFeed{Notifications: merged}
	for _, n := range merged {
		if !n.Read {
			feed.UnreadCount++
		}
	}
	return feed, nil
}

// MarkRead marks the notice read for actor in whichever store holds it.
// Assignees each have their own flag; administrators share one on creation
// notices. A stored notice outside the actor's feed is reported as not found.
// Marking an already read notice succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, actor access.Actor, id string, cache ClientCache) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	inCache := false
	if cache != nil {
		found, err := cache.MarkRead(id)
		if err != nil {
			return apierrors.Dependency("update client cache", err)
		}
		inCache = found
	}

	stored, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !actor.SeesNotification(stored.Kind, stored.RecipientIDs())) {
		if inCache {
			return nil
		}
		return apierrors.NotFoundf(notificationNotFound)
	}
	if err != nil {
		return apierrors.Classify("find notification", err)
	}

	if actor.IsAdmin() {
		_, err = s.repo.MarkRead(ctx, id)
	} else {
		_, err = s.repo.MarkReadFor(ctx, id, actor.UserID)
	}
	if err != nil {
		return apierrors.Classify("mark notification read", err)
	}
	return nil
}

// MergeNotices unions both sources and keeps one notice per task, the one
// created last. Ties go to the durable copy. The result is newest first.
func MergeNotices(durable, cached []Notice) []Notice {
	byTask := make(map[uint64]Notice, len(durable)+len(cached))
	for _, source := range [][]Notice{durable, cached} {
		for _, n := range source {
			current, ok := byTask[n.TaskID]
			if !ok || n.CreatedAt.After(current.CreatedAt) {
				byTask[n.TaskID] = n
			}
		}
	}

	merged := make([]Notice, 0, len(byTask))
	for _, n := range byTask {
		merged = append(merged, n)
	}
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].TaskID > merged[j].TaskID
	})
	return merged
}

func dedupKey(kind models.NotificationKind, taskID uint64, recipients []uint64, message string) string {
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(taskID, 10))
	b.WriteByte('|')
	for i, id := range recipients {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(id, 10))
	}
	b.WriteByte('|')
	b.WriteString(message)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// normalizeIDs returns the distinct non-zero ids in ascending order.
func normalizeIDs(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
