package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"github.com/yukikurage/stellar-tasks/internal/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// ListNotifications returns the caller's merged feed. Clients poll this on a
// fixed interval.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	feed, err := h.notificationService.ListFor(c.Request.Context(), actor, services.NewSessionCache(sessions.Default(c)))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, feed)
}

// CreateNotification records an assignment notification. Retries with the
// same payload return the notice already stored.
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req struct {
		TaskID     uint64   `json:"taskId"`
		Title      string   `json:"title"`
		AssignedTo []uint64 `json:"assignedTo"`
		Message    string   `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	notice, err := h.notificationService.NotifyAssignment(c.Request.Context(), services.AssignmentInput{
		TaskID:    req.TaskID,
		Title:     req.Title,
		Assignees: req.AssignedTo,
		Message:   req.Message,
	})
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, notice)
}

// MarkRead flags a notification as read for the caller
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		apierrors.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), actor, id, services.NewSessionCache(sessions.Default(c))); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification marked as read",
	})
}
