package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify("noop", nil))

	timeout := Classify("load task", fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, timeout, ErrTimeout)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)

	dep := Classify("load task", stderrors.New("connection refused"))
	assert.ErrorIs(t, dep, ErrDependency)

	notFound := NotFoundf("task %d not found", 7)
	assert.Same(t, notFound, Classify("load task", notFound))
}

func TestRetryable(t *testing.T) {
	var d *DomainError
	require.True(t, stderrors.As(Timeout("x", context.DeadlineExceeded), &d))
	assert.True(t, d.Retryable())
	require.True(t, stderrors.As(Validation("title", "title is required"), &d))
	assert.False(t, d.Retryable())
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		code int
		body string
	}{
		{Validation("title", "title is required"), http.StatusBadRequest, "title is required"},
		{NotFoundf("task not found"), http.StatusNotFound, "task not found"},
		{Forbiddenf("not assigned"), http.StatusForbidden, "not assigned"},
		{Dependency("list tasks", stderrors.New("dial tcp 10.0.0.1:3306")), http.StatusServiceUnavailable, "Service temporarily unavailable"},
		{Timeout("list tasks", context.DeadlineExceeded), http.StatusGatewayTimeout, "Request timed out"},
		{stderrors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		Respond(c, tc.err)

		assert.Equal(t, tc.code, w.Code)
		assert.Contains(t, w.Body.String(), tc.body)
		assert.NotContains(t, w.Body.String(), "10.0.0.1")
	}
}
