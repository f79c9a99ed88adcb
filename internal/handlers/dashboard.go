package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"github.com/yukikurage/stellar-tasks/internal/services"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboard returns organization-wide statistics for administrators.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	stats, err := h.dashboardService.GlobalStats(c.Request.Context(), actor)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetUserDashboard returns statistics over the caller's own tasks.
func (h *DashboardHandler) GetUserDashboard(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	stats, err := h.dashboardService.UserStats(c.Request.Context(), actor)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
