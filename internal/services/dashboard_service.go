package services

import (
	"context"
	"time"

	"github.com/yukikurage/stellar-tasks/internal/access"
	"github.com/yukikurage/stellar-tasks/internal/constants"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"github.com/yukikurage/stellar-tasks/internal/repository"
)

// DashboardScope selects the tasks a dashboard summarizes. A nil UserID is
// the global scope.
type DashboardScope struct {
	UserID *uint64
}

// GlobalScope covers every live task.
func GlobalScope() DashboardScope {
	return DashboardScope{}
}

// UserScope covers the tasks assigned to userID.
func UserScope(userID uint64) DashboardScope {
	return DashboardScope{UserID: &userID}
}

func (s DashboardScope) IsGlobal() bool {
	return s.UserID == nil
}

type DashboardStatistics struct {
	TotalTasks      int64 `json:"totalTasks"`
	PendingTasks    int64 `json:"pendingTasks"`
	InProgressTasks int64 `json:"inProgressTasks"`
	CompletedTasks  int64 `json:"completedTasks"`
	OverdueTasks    int64 `json:"overdueTasks"`
}

type TaskDistribution struct {
	All        int64 `json:"All"`
	Pending    int64 `json:"Pending"`
	InProgress int64 `json:"InProgress"`
	Completed  int64 `json:"Completed"`
}

type PriorityLevels struct {
	Low    int64 `json:"Low"`
	Medium int64 `json:"Medium"`
	High   int64 `json:"High"`
}

type DashboardCharts struct {
	TaskDistribution   TaskDistribution `json:"taskDistribution"`
	TaskPriorityLevels PriorityLevels   `json:"taskPriorityLevels"`
}

type RecentTask struct {
	ID        uint64              `json:"id"`
	Title     string              `json:"title"`
	Status    models.TaskStatus   `json:"status"`
	Priority  models.TaskPriority `json:"priority"`
	CreatedAt time.Time           `json:"createdAt"`
}

type UserCounts struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// ActivityEntry describes the latest write to a task
type ActivityEntry struct {
	TaskID uint64    `json:"taskId"`
	Title  string    `json:"title"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// DashboardStats is a point-in-time snapshot; it is never persisted.
type DashboardStats struct {
	Statistics     DashboardStatistics `json:"statistics"`
	Charts         DashboardCharts     `json:"charts"`
	RecentTasks    []RecentTask        `json:"recentTasks"`
	Users          *UserCounts         `json:"users,omitempty"`
	RecentActivity []ActivityEntry     `json:"recentActivity,omitempty"`
}

// DashboardService aggregates task statistics per scope
type DashboardService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	timeout  time.Duration
	now      Clock
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, timeout time.Duration) *DashboardService {
	return &DashboardService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		timeout:  timeout,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for overdue computation.
func (s *DashboardService) WithClock(now Clock) *DashboardService {
	s.now = now
	return s
}

// GlobalStats returns the organization-wide dashboard. Administrators only.
func (s *DashboardService) GlobalStats(ctx context.Context, actor access.Actor) (*DashboardStats, error) {
	if !actor.CanViewGlobalDashboard() {
		return nil, apierrors.Forbiddenf("Only administrators can view the global dashboard")
	}
	return s.ComputeStats(ctx, GlobalScope())
}

// UserStats returns the dashboard over the actor's own assignments.
func (s *DashboardService) UserStats(ctx context.Context, actor access.Actor) (*DashboardStats, error) {
	return s.ComputeStats(ctx, UserScope(actor.UserID))
}

// ComputeStats reads the repository and never returns partial results: any
// collaborator failure fails the whole computation.
func (s *DashboardService) ComputeStats(ctx context.Context, scope DashboardScope) (*DashboardStats, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	filter := repository.TaskFilter{AssignedUserID: scope.UserID}
	now := s.now()

	byStatus, err := s.taskRepo.CountBy(ctx, filter, "status")
	if err != nil {
		return nil, apierrors.Classify("count tasks by status", err)
	}
	byPriority, err := s.taskRepo.CountBy(ctx, filter, "priority")
	if err != nil {
		return nil, apierrors.Classify("count tasks by priority", err)
	}
	overdue, err := s.taskRepo.CountOverdue(ctx, filter, now)
	if err != nil {
		return nil, apierrors.Classify("count overdue tasks", err)
	}

	recentFilter := filter
	recentFilter.Limit = constants.RecentTasksLimit
	recent, _, err := s.taskRepo.List(ctx, recentFilter)
	if err != nil {
		return nil, apierrors.Classify("list recent tasks", err)
	}

	summary := summarize(byStatus)
	stats := &DashboardStats{
		Statistics: DashboardStatistics{
			TotalTasks:      summary.All,
			PendingTasks:    summary.Pending,
			InProgressTasks: summary.InProgress,
			CompletedTasks:  summary.Completed,
			OverdueTasks:    overdue,
		},
		Charts: DashboardCharts{
			TaskDistribution: TaskDistribution{
				All:        summary.All,
				Pending:    summary.Pending,
				InProgress: summary.InProgress,
				Completed:  summary.Completed,
			},
			TaskPriorityLevels: PriorityLevels{
				Low:    byPriority[string(models.TaskPriorityLow)],
				Medium: byPriority[string(models.TaskPriorityMedium)],
				High:   byPriority[string(models.TaskPriorityHigh)],
			},
		},
		RecentTasks: make([]RecentTask, 0, len(recent)),
	}
	for _, t := range recent {
		stats.RecentTasks = append(stats.RecentTasks, RecentTask{
			ID:        t.ID,
			Title:     t.Title,
			Status:    t.Status,
			Priority:  t.Priority,
			CreatedAt: t.CreatedAt,
		})
	}

	if !scope.IsGlobal() {
		return stats, nil
	}

	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, apierrors.Classify("count users", err)
	}
	active, err := s.userRepo.CountActive(ctx)
	if err != nil {
		return nil, apierrors.Classify("count active users", err)
	}
	stats.Users = &UserCounts{Total: total, Active: active}

	touched, _, err := s.taskRepo.List(ctx, repository.TaskFilter{
		Order: repository.OrderUpdatedDesc,
		Limit: constants.RecentActivityLimit,
	})
	if err != nil {
		return nil, apierrors.Classify("list recent activity", err)
	}
	stats.RecentActivity = make([]ActivityEntry, 0, len(touched))
	for _, t := range touched {
		action := "updated"
		if !t.UpdatedAt.After(t.CreatedAt) {
			action = "created"
		}
		stats.RecentActivity = append(stats.RecentActivity, ActivityEntry{
			TaskID: t.ID,
			Title:  t.Title,
			Action: action,
			At:     t.UpdatedAt,
		})
	}

	return stats, nil
}
