package errors

import (
	stderrors "errors"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// Respond writes the HTTP response matching err. Validation, not-found and
// forbidden messages reach the caller verbatim; dependency and timeout errors
// are logged and replaced with a generic message.
func Respond(c *gin.Context, err error) {
	var domainErr *DomainError
	if !stderrors.As(err, &domainErr) {
		slog.Error("unclassified error", slog.String("path", c.FullPath()), slog.Any("err", err))
		InternalError(c, "")
		return
	}

	switch domainErr.Kind {
	case ErrValidation:
		if domainErr.Field != "" {
			BadRequestWithDetails(c, domainErr.Message, map[string]string{"field": domainErr.Field})
			return
		}
		BadRequest(c, domainErr.Message)
	case ErrNotFound:
		NotFound(c, domainErr.Message)
	case ErrForbidden:
		Forbidden(c, domainErr.Message)
	case ErrTimeout:
		slog.Warn("request timed out", slog.String("path", c.FullPath()), slog.Any("err", err))
		GatewayTimeout(c, "")
	case ErrDependency:
		slog.Error("dependency failure", slog.String("path", c.FullPath()), slog.Any("err", err))
		ServiceUnavailable(c, "")
	default:
		InternalError(c, "")
	}
}
