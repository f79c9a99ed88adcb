package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paginationFor(query string) *PaginationParams {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/tasks?"+query, nil)
	return GetPaginationParams(c)
}

func TestGetPaginationParams(t *testing.T) {
	assert.Nil(t, paginationFor(""))
	assert.Nil(t, paginationFor("status=Pending"))

	params := paginationFor("page=3&limit=10")
	require.NotNil(t, params)
	assert.Equal(t, PaginationParams{Page: 3, Limit: 10, Offset: 20}, *params)

	params = paginationFor("page=0&limit=1000")
	require.NotNil(t, params)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 20, params.Limit)

	params = paginationFor("limit=5")
	require.NotNil(t, params)
	assert.Equal(t, PaginationParams{Page: 1, Limit: 5, Offset: 0}, *params)
}
