package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/stellar-tasks/internal/access"
	"github.com/yukikurage/stellar-tasks/internal/constants"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"github.com/yukikurage/stellar-tasks/internal/models"
)

// TokenParser resolves a bearer token to the caller it was issued for.
type TokenParser interface {
	ParseToken(token string) (access.Actor, error)
}

// RequireAuth checks the Authorization bearer token
func RequireAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		actor, err := parser.ParseToken(strings.TrimSpace(token))
		if err != nil {
			apierrors.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		// Store the caller in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, actor.UserID)
		c.Set(constants.ContextKeyUserRole, actor.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not role
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if actor.Role != role {
			apierrors.Forbidden(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetActor retrieves the authenticated caller from context
func GetActor(c *gin.Context) (access.Actor, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return access.Actor{}, false
	}
	role, ok := c.Get(constants.ContextKeyUserRole)
	if !ok {
		return access.Actor{}, false
	}
	userRole, ok := role.(models.UserRole)
	if !ok {
		return access.Actor{}, false
	}
	return access.Actor{UserID: userID, Role: userRole}, true
}
