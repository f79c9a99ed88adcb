package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUserRole = "user_role"
	ContextKeyTaskID   = "task_id"

	SessionCookieName           = "task_session"
	SessionKeyNotificationCache = "notification_cache"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
	DefaultTokenTTL   = 24 * time.Hour
)

// Dashboard
const (
	RecentTasksLimit    = 10
	RecentActivityLimit = 10
)

// Notifications
const (
	NotificationPollInterval = 30 * time.Second
	NotificationDedupWindow  = 5 * time.Minute
	MaxClientCachedNotices   = 50
	NotificationFeedLimit    = 50
)

// AI
const (
	MaxAISuggestedItems = 20
)

// DefaultRequestTimeout bounds every repository and dispatcher call.
const DefaultRequestTimeout = 5 * time.Second
