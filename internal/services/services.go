package services

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/stellar-tasks/internal/constants"
	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"gorm.io/gorm"
)

// Clock returns the current time. Services take one so results are
// reproducible in tests.
type Clock func() time.Time

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError maps a repository failure onto the domain taxonomy. A missing
// record becomes NotFound with the given message.
func storeError(op string, err error, notFound string) error {
	if err == nil {
		return nil
	}
	if notFound != "" && errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.NotFoundf("%s", notFound)
	}
	return apierrors.Classify(op, err)
}
