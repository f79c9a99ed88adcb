package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stellar-tasks/internal/constants"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
)

// RequireTaskID parses the :id path parameter. Access to the task itself is
// decided by the service, which holds the row lock.
func RequireTaskID() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || taskID == 0 {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTaskID, taskID)
		c.Next()
	}
}

// GetTaskID retrieves the task ID set by RequireTaskID
func GetTaskID(c *gin.Context) (uint64, bool) {
	value, exists := c.Get(constants.ContextKeyTaskID)
	if !exists {
		return 0, false
	}
	taskID, ok := value.(uint64)
	return taskID, ok
}
