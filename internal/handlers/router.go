package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stellar-tasks/internal/constants"
	"github.com/yukikurage/stellar-tasks/internal/middleware"
	"github.com/yukikurage/stellar-tasks/internal/models"
)

// Handlers groups everything the route table dispatches to.
type Handlers struct {
	Auth         *AuthHandler
	Task         *TaskHandler
	Notification *NotificationHandler
	Dashboard    *DashboardHandler
}

// RegisterRoutes mounts the health check and the /api surface on r.
func RegisterRoutes(r *gin.Engine, h Handlers, parser middleware.TokenParser, store sessions.Store) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Management API is running",
		})
	})

	api := r.Group("/api")
	api.Use(sessions.Sessions(constants.SessionCookieName, store))

	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.Auth.Signup)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", middleware.RequireAuth(parser), h.Auth.GetCurrentUser)
	}

	adminOnly := middleware.RequireRole(models.RoleAdmin)

	tasks := api.Group("/tasks")
	tasks.Use(middleware.RequireAuth(parser))
	{
		tasks.GET("", h.Task.ListTasks)
		tasks.POST("", h.Task.CreateTask)
		tasks.POST("/checklist-suggestions", adminOnly, h.Task.SuggestChecklist)

		tasks.GET("/dashboard", h.Dashboard.GetDashboard)
		tasks.GET("/user-dashboard-data", h.Dashboard.GetUserDashboard)

		tasks.GET("/notifications", h.Notification.ListNotifications)
		tasks.POST("/notifications", adminOnly, h.Notification.CreateNotification)
		tasks.POST("/notifications/:id/read", h.Notification.MarkRead)

		byID := tasks.Group("/:id", middleware.RequireTaskID())
		{
			byID.GET("", h.Task.GetTask)
			byID.PUT("", h.Task.UpdateTask)
			byID.DELETE("", h.Task.DeleteTask)
			byID.PUT("/status", h.Task.UpdateTaskStatus)
			byID.PUT("/todo", h.Task.UpdateTaskChecklist)
			byID.PUT("/todo/:index", h.Task.UpdateChecklistItem)
		}
	}
}
